package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key",
		WithRetries(2),
		WithRetryInterval(time.Millisecond))
}

func TestAnalyze(t *testing.T) {
	var gotKey string
	var gotReq AnalyzeRequest

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		require.Equal(t, "/api/v1/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(AnalyzeResult{
			Status:     "success",
			Matches:    []Match{{ID: "mf1", Title: "Some Show", IMDBID: "tt1234567"}},
			Resolution: "1080p",
		})
	})

	result, err := c.Analyze(context.Background(), AnalyzeRequest{
		MagnetURI: "magnet:?xt=urn:btih:abc",
		MetaType:  "series",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "series", gotReq.MetaType)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "tt1234567", result.Matches[0].IMDBID)
	assert.Equal(t, "1080p", result.Resolution)
}

func TestAnalyze_RetriesServerErrors(t *testing.T) {
	attempts := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(AnalyzeResult{Status: "success"})
	})

	_, err := c.Analyze(context.Background(), AnalyzeRequest{MetaType: "movie"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestAnalyze_DoesNotRetryBadRequests(t *testing.T) {
	attempts := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := c.Analyze(context.Background(), AnalyzeRequest{MetaType: "movie"})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, 1, attempts)
}

func TestAnalyze_ExhaustsRetries(t *testing.T) {
	attempts := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Analyze(context.Background(), AnalyzeRequest{MetaType: "movie"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, attempts) // initial call + 2 retries
}

func TestImport(t *testing.T) {
	var gotReq ImportRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/import", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ImportResult{Status: ImportStatusProcessing})
	})

	result, err := c.Import(context.Background(), ImportRequest{
		MetaType: "movie",
		MetaID:   "tt1234567",
		Title:    "Some Movie",
	})
	require.NoError(t, err)
	assert.Equal(t, ImportStatusProcessing, result.Status)
	assert.Equal(t, "tt1234567", gotReq.MetaID)
}

func TestImport_NeverRetries(t *testing.T) {
	attempts := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Import(context.Background(), ImportRequest{MetaType: "movie"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, attempts)
}

func TestDownloadTorrent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("d8:announce0:e"))
	})

	data, err := c.DownloadTorrent(context.Background(), c.baseURL+"/file.torrent")
	require.NoError(t, err)
	assert.Equal(t, "d8:announce0:e", string(data))
}

func TestDownloadTorrent_TooLarge(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxTorrentSize+1)))
	})

	_, err := c.DownloadTorrent(context.Background(), c.baseURL+"/big.torrent")
	assert.ErrorIs(t, err, ErrTorrentTooLarge)
}

func TestMatchMetaID(t *testing.T) {
	tests := []struct {
		name string
		m    Match
		want string
	}{
		{"imdb primary untagged", Match{ID: "mf1", IMDBID: "tt1", TMDBID: "99"}, "tt1"},
		{"tmdb fallback tagged", Match{ID: "mf1", TMDBID: "99"}, "tmdb:99"},
		{"catalog id last", Match{ID: "mf1"}, "mf1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.MetaID())
		})
	}
}
