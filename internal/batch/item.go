// Package batch holds the import item collection and its status state machine.
package batch

import (
	"net/url"
	"path"
	"strings"

	"github.com/bulkarr/bulkarr/pkg/detect"
	"github.com/bulkarr/bulkarr/pkg/magnet"
)

// SourceType distinguishes how an item's torrent data is obtained.
type SourceType string

const (
	// SourceMagnet items carry a magnet URI; the catalog resolves the hash.
	SourceMagnet SourceType = "magnet"
	// SourceTorrent items carry a URL to a .torrent file that must be
	// downloaded before analysis.
	SourceTorrent SourceType = "torrent"
)

// Status tracks where an item sits in the import pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSkipped   Status = "skipped"
	StatusAnalyzing Status = "analyzing"
	StatusImporting Status = "importing"
	StatusSuccess   Status = "success"
	StatusWarning   Status = "warning"
	StatusError     Status = "error"
)

// Item is one torrent reference moving through the batch pipeline.
type Item struct {
	ID         int
	SourceRef  string
	SourceType SourceType
	InfoHash   string // empty for .torrent URLs until analyzed
	Title      string

	// ContentType is user-correctable; DetectedContentType records the
	// heuristic's original guess and is never reassigned.
	ContentType         detect.ContentType
	DetectedContentType detect.ContentType
	SportsCategory      detect.SportsCategory

	Status       Status
	ErrorMessage string

	// Canonical metadata from the catalog's analyze step.
	MatchTitle string
	MatchID    string
}

// Overridden reports whether the user changed the detected classification.
func (it *Item) Overridden() bool {
	return it.ContentType != it.DetectedContentType
}

// NewItem builds a pending item from a magnet URI or .torrent URL.
// label, when non-empty, takes precedence over the magnet display name
// as the item title (it is the page-scraped or user-supplied text).
func NewItem(ref, label string) (Item, error) {
	it := Item{
		SourceRef: strings.TrimSpace(ref),
		Status:    StatusPending,
	}

	if magnet.IsMagnet(it.SourceRef) {
		m, err := magnet.Parse(it.SourceRef)
		if err != nil {
			return Item{}, err
		}
		it.SourceType = SourceMagnet
		it.InfoHash = m.InfoHash
		it.Title = m.Title()
	} else {
		it.SourceType = SourceTorrent
		it.Title = titleFromURL(it.SourceRef)
	}

	if label != "" {
		it.Title = label
	}

	// Classify against everything we know about the item at load time.
	text := it.Title + " " + it.SourceRef
	it.DetectedContentType = detect.DetectContentType(text)
	it.ContentType = it.DetectedContentType
	if it.ContentType == detect.ContentTypeSports {
		it.SportsCategory = detect.DetectSportsCategory(text)
	}

	return it, nil
}

// titleFromURL derives a display title from a .torrent URL's file name.
func titleFromURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	name := path.Base(u.Path)
	name = strings.TrimSuffix(name, ".torrent")
	name = strings.ReplaceAll(name, ".", " ")
	name = strings.ReplaceAll(name, "_", " ")
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	return strings.Join(strings.Fields(name), " ")
}
