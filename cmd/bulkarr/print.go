package main

import (
	"fmt"

	"github.com/bulkarr/bulkarr/internal/batch"
)

// itemJSON is the JSON-friendly representation of a batch item.
type itemJSON struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	SourceType   string `json:"source_type"`
	ContentType  string `json:"content_type"`
	Sport        string `json:"sports_category,omitempty"`
	Status       string `json:"status"`
	MatchTitle   string `json:"match_title,omitempty"`
	MatchID      string `json:"match_id,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

func toItemJSON(items []batch.Item) []itemJSON {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		out[i] = itemJSON{
			ID:           it.ID,
			Title:        it.Title,
			SourceType:   string(it.SourceType),
			ContentType:  string(it.ContentType),
			Sport:        string(it.SportsCategory),
			Status:       string(it.Status),
			MatchTitle:   it.MatchTitle,
			MatchID:      it.MatchID,
			ErrorMessage: it.ErrorMessage,
		}
	}
	return out
}

func printItems(items []batch.Item) {
	if jsonOutput {
		printJSON(toItemJSON(items))
		return
	}

	rows := make([][]string, len(items))
	for i, it := range items {
		title := it.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		kind := string(it.ContentType)
		if it.SportsCategory != "" {
			kind += "/" + string(it.SportsCategory)
		}
		detail := it.MatchID
		if it.ErrorMessage != "" {
			detail = it.ErrorMessage
		}
		rows[i] = []string{
			fmt.Sprint(it.ID), title, kind, string(it.Status), detail,
		}
	}
	fmt.Println(renderTable(
		[]string{"ID", "TITLE", "TYPE", "STATUS", "MATCH / ERROR"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func printCounts(c batch.Counts) {
	fmt.Printf("%d items: %d success, %d warning, %d error, %d skipped, %d pending\n",
		c.Total(), c.Success, c.Warning, c.Error, c.Skipped, c.Pending)
}
