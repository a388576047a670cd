// Package catalog is the client for the remote catalog service's analyze and
// import endpoints.
package catalog

// AnalyzeRequest asks the catalog to inspect a torrent and propose metadata
// matches. Exactly one of MagnetURI or TorrentData is set.
type AnalyzeRequest struct {
	MagnetURI   string `json:"magnet_link,omitempty"`
	TorrentData []byte `json:"torrent_file,omitempty"`
	MetaType    string `json:"meta_type"`
}

// Match is one metadata candidate returned by analyze.
type Match struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year,omitempty"`
	Type   string `json:"type,omitempty"`
	IMDBID string `json:"imdb_id,omitempty"`
	TMDBID string `json:"tmdb_id,omitempty"`
}

// MetaID resolves the identifier to submit on import. The primary provider id
// is used untagged; alternates carry their provider tag as a prefix.
func (m Match) MetaID() string {
	switch {
	case m.IMDBID != "":
		return m.IMDBID
	case m.TMDBID != "":
		return "tmdb:" + m.TMDBID
	default:
		return m.ID
	}
}

// AnalyzedFile is one file inside the analyzed torrent.
type AnalyzedFile struct {
	Index         int    `json:"index"`
	Filename      string `json:"filename"`
	Size          int64  `json:"size"`
	SeasonNumber  *int   `json:"season_number,omitempty"`
	EpisodeNumber *int   `json:"episode_number,omitempty"`
}

// AnalyzeResult is the catalog's response to an analyze request.
type AnalyzeResult struct {
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Matches    []Match        `json:"matches"`
	Resolution string         `json:"resolution,omitempty"`
	Quality    string         `json:"quality,omitempty"`
	Codec      string         `json:"codec,omitempty"`
	Audio      []string       `json:"audio,omitempty"`
	HDR        []string       `json:"hdr,omitempty"`
	Languages  []string       `json:"languages,omitempty"`
	Files      []AnalyzedFile `json:"files,omitempty"`
}

// ImportRequest submits a torrent into the catalog.
type ImportRequest struct {
	MagnetURI   string `json:"magnet_link,omitempty"`
	TorrentData []byte `json:"torrent_file,omitempty"`

	MetaType string `json:"meta_type"`
	MetaID   string `json:"meta_id"`
	Title    string `json:"title"`

	Resolution string   `json:"resolution,omitempty"`
	Quality    string   `json:"quality,omitempty"`
	Codec      string   `json:"codec,omitempty"`
	Audio      []string `json:"audio,omitempty"`
	HDR        []string `json:"hdr,omitempty"`
	Languages  []string `json:"languages,omitempty"`

	SportsCategory string `json:"sports_category,omitempty"`

	// FileData is a JSON-encoded annotation array for multi-file torrents.
	FileData string `json:"file_data,omitempty"`

	// ForceImport bypasses remote title validation; only set when retrying
	// after a validation_failed outcome.
	ForceImport bool `json:"force_import,omitempty"`
}

// Import result statuses as reported by the catalog.
const (
	ImportStatusSuccess          = "success"
	ImportStatusProcessing       = "processing"
	ImportStatusWarning          = "warning"
	ImportStatusError            = "error"
	ImportStatusNeedsAnnotation  = "needs_annotation"
	ImportStatusValidationFailed = "validation_failed"
)

// ImportIssue is one structured problem in an import response.
type ImportIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TorrentData echoes back per-file metadata the catalog attached during
// import, for annotation round-trips.
type TorrentData struct {
	FileData string `json:"file_data"`
}

// ImportResult is the catalog's response to an import request.
type ImportResult struct {
	Status      string        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Errors      []ImportIssue `json:"errors,omitempty"`
	TorrentData *TorrentData  `json:"torrent_data,omitempty"`
}
