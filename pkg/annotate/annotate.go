// Package annotate assigns season and episode numbers to torrent file lists
// ahead of import.
package annotate

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FileAnnotation describes one file inside a multi-file torrent.
// Index is the position in the torrent's original file list, not the
// sorted display order.
type FileAnnotation struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Season   *int   `json:"season_number,omitempty"`
	Episode  *int   `json:"episode_number,omitempty"`
	Included bool   `json:"included"`
}

// natural compares filenames with numeric awareness, so "E2" sorts before
// "E10".
var natural = collate.New(language.Und, collate.Numeric, collate.IgnoreCase)

// SortByFilename returns a copy of files ordered by natural filename
// comparison. Numbering operations always work over this order.
func SortByFilename(files []FileAnnotation) []FileAnnotation {
	sorted := clone(files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return natural.CompareString(sorted[i].Filename, sorted[j].Filename) < 0
	})
	return sorted
}

// ApplySeasonFrom returns the naturally sorted file list with Season set to
// season on every included file at sorted position >= startIndex. A season
// below 1 defaults to 1. Excluded files are left untouched and skipped over;
// an out-of-range startIndex returns the sorted list unchanged.
func ApplySeasonFrom(files []FileAnnotation, startIndex, season int) []FileAnnotation {
	sorted := SortByFilename(files)
	if startIndex < 0 || startIndex >= len(sorted) {
		return sorted
	}
	if season < 1 {
		season = 1
	}

	for i := startIndex; i < len(sorted); i++ {
		if !sorted[i].Included {
			continue
		}
		v := season
		sorted[i].Season = &v
	}
	return sorted
}

// ApplyEpisodeNumberingFrom returns the naturally sorted file list with
// consecutive episode numbers assigned to included files from startIndex
// onward, beginning at startValue (values below 1 default to 1). The counter
// resets to 1 whenever an included file's season differs from the previous
// included file's season, both being set; the first file processed never
// triggers a reset. Out-of-range indices leave the list unchanged.
func ApplyEpisodeNumberingFrom(files []FileAnnotation, startIndex, startValue int) []FileAnnotation {
	sorted := SortByFilename(files)
	if startIndex < 0 || startIndex >= len(sorted) {
		return sorted
	}
	if startValue < 1 {
		startValue = 1
	}

	counter := startValue
	var prevSeason *int
	first := true

	for i := startIndex; i < len(sorted); i++ {
		if !sorted[i].Included {
			continue
		}
		if !first && prevSeason != nil && sorted[i].Season != nil && *sorted[i].Season != *prevSeason {
			counter = 1
		}
		v := counter
		sorted[i].Episode = &v
		counter++

		prevSeason = sorted[i].Season
		first = false
	}
	return sorted
}

// clone deep-copies the annotation slice so callers never share the
// season/episode pointers with the input.
func clone(files []FileAnnotation) []FileAnnotation {
	out := make([]FileAnnotation, len(files))
	for i, f := range files {
		out[i] = f
		if f.Season != nil {
			v := *f.Season
			out[i].Season = &v
		}
		if f.Episode != nil {
			v := *f.Episode
			out[i].Episode = &v
		}
	}
	return out
}
