// Package magnet parses magnet URIs into their torrent components.
package magnet

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const btihPrefix = "urn:btih:"

// Sentinel errors for the magnet package.
var (
	// ErrNotMagnet is returned when the URI does not use the magnet scheme.
	ErrNotMagnet = errors.New("not a magnet uri")

	// ErrNoInfoHash is returned when no btih exact-topic is present.
	ErrNoInfoHash = errors.New("magnet uri has no info hash")

	// ErrBadInfoHash is returned when the btih value has an invalid length.
	ErrBadInfoHash = errors.New("invalid info hash")
)

// Magnet is a parsed magnet link.
type Magnet struct {
	InfoHash    string // lowercase hex (40 chars) or base32 (32 chars)
	DisplayName string // dn parameter, may be empty
	Trackers    []string
}

// Parse extracts the info hash, display name, and trackers from a magnet URI.
func Parse(raw string) (*Magnet, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse uri: %w", err)
	}
	if u.Scheme != "magnet" {
		return nil, fmt.Errorf("%w: scheme %q", ErrNotMagnet, u.Scheme)
	}

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	m := &Magnet{
		DisplayName: q.Get("dn"),
		Trackers:    q["tr"],
	}

	for _, xt := range q["xt"] {
		if strings.HasPrefix(strings.ToLower(xt), btihPrefix) {
			hash := xt[len(btihPrefix):]
			switch len(hash) {
			case 40:
				m.InfoHash = strings.ToLower(hash)
			case 32:
				// base32 encoding, keep case as-is per BEP 9
				m.InfoHash = hash
			default:
				return nil, fmt.Errorf("%w: %d chars", ErrBadInfoHash, len(hash))
			}
			break
		}
	}
	if m.InfoHash == "" {
		return nil, ErrNoInfoHash
	}

	return m, nil
}

// IsMagnet reports whether the reference looks like a magnet URI.
func IsMagnet(ref string) bool {
	return strings.HasPrefix(strings.ToLower(ref), "magnet:")
}

// Title returns the display name with release-style separators replaced by
// spaces, suitable for search queries. Empty when the uri carried no dn.
func (m *Magnet) Title() string {
	s := strings.ReplaceAll(m.DisplayName, ".", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}
