package batch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RejectedRef records an input line that could not become an item.
type RejectedRef struct {
	Line string
	Err  error
}

// ParseRefs turns batch input lines into pending items. Each line is a
// magnet URI or .torrent URL, optionally followed by " | label" carrying the
// scraped or user-supplied display text. Blank lines and #-comments are
// skipped, magnet duplicates are collapsed by info hash, and malformed lines
// are reported rather than aborting the batch.
func ParseRefs(lines []string) ([]Item, []RejectedRef) {
	var items []Item
	var rejected []RejectedRef
	seen := make(map[string]bool)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref, label := line, ""
		if idx := strings.Index(line, "|"); idx >= 0 {
			ref = strings.TrimSpace(line[:idx])
			label = strings.TrimSpace(line[idx+1:])
		}

		it, err := NewItem(ref, label)
		if err != nil {
			rejected = append(rejected, RejectedRef{Line: line, Err: err})
			continue
		}

		key := it.InfoHash
		if key == "" {
			key = it.SourceRef
		}
		if seen[key] {
			rejected = append(rejected, RejectedRef{Line: line, Err: fmt.Errorf("duplicate of %s", key)})
			continue
		}
		seen[key] = true

		items = append(items, it)
	}

	return items, rejected
}

// ReadRefs reads batch input lines from r and parses them.
func ReadRefs(r io.Reader) ([]Item, []RejectedRef, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read batch input: %w", err)
	}

	items, rejected := ParseRefs(lines)
	return items, rejected, nil
}
