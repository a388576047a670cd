package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 * 1024 * 1024, "3.0 MiB"},
		{int64(1.5 * 1024 * 1024 * 1024), "1.5 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.in))
	}
}

func TestToItemJSON(t *testing.T) {
	items := []batch.Item{
		{
			ID:             3,
			Title:          "UFC 300",
			SourceType:     batch.SourceMagnet,
			ContentType:    detect.ContentTypeSports,
			SportsCategory: detect.SportsFighting,
			Status:         batch.StatusError,
			ErrorMessage:   "no metadata match found",
		},
	}

	got := toItemJSON(items)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, "sports", got[0].ContentType)
	assert.Equal(t, "fighting", got[0].Sport)
	assert.Equal(t, "error", got[0].Status)
	assert.Equal(t, "no metadata match found", got[0].ErrorMessage)
}
