package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/catalog"
	"github.com/bulkarr/bulkarr/pkg/annotate"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCatalog is a scriptable CatalogAPI recording every call.
type fakeCatalog struct {
	mu sync.Mutex

	analyzeFn func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error)
	importFn  func(req catalog.ImportRequest) (*catalog.ImportResult, error)
	torrents  map[string][]byte

	analyzeCalls []catalog.AnalyzeRequest
	importCalls  []catalog.ImportRequest
}

func (f *fakeCatalog) Analyze(_ context.Context, req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
	f.mu.Lock()
	f.analyzeCalls = append(f.analyzeCalls, req)
	f.mu.Unlock()
	if f.analyzeFn != nil {
		return f.analyzeFn(req)
	}
	return &catalog.AnalyzeResult{
		Status:     "success",
		Matches:    []catalog.Match{{ID: "mf1", Title: "Some Title", IMDBID: "tt1"}},
		Resolution: "1080p",
	}, nil
}

func (f *fakeCatalog) Import(_ context.Context, req catalog.ImportRequest) (*catalog.ImportResult, error) {
	f.mu.Lock()
	f.importCalls = append(f.importCalls, req)
	f.mu.Unlock()
	if f.importFn != nil {
		return f.importFn(req)
	}
	return &catalog.ImportResult{Status: catalog.ImportStatusSuccess}, nil
}

func (f *fakeCatalog) DownloadTorrent(_ context.Context, url string) ([]byte, error) {
	if data, ok := f.torrents[url]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: no torrent at %s", catalog.ErrUnavailable, url)
}

// magnetRef builds a syntactically valid magnet URI for a display name.
func magnetRef(i int, dn string) string {
	return fmt.Sprintf("magnet:?xt=urn:btih:%040x&dn=%s", i+1, dn)
}

func addMagnets(t *testing.T, store *batch.Store, names ...string) []int {
	t.Helper()
	ids := make([]int, len(names))
	for i, dn := range names {
		it, err := batch.NewItem(magnetRef(i, dn), "")
		require.NoError(t, err)
		ids[i] = store.Add(it)
	}
	return ids
}

func newSweeper(store *batch.Store, api CatalogAPI, cfg Config) *Sweeper {
	return New(store, api, cfg, testLogger())
}

func TestRun_EndToEndSuccess(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01.1080p", "Show.S01E02.1080p")

	fake := &fakeCatalog{
		analyzeFn: func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
			return &catalog.AnalyzeResult{
				Status:  "success",
				Matches: []catalog.Match{{ID: "mf1", Title: "Show", IMDBID: "tt1"}},
			}, nil
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.NoError(t, s.Run(context.Background()))

	for _, id := range ids {
		it, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, batch.StatusSuccess, it.Status)
		assert.Equal(t, "tt1", it.MatchID)
		assert.Equal(t, "Show", it.MatchTitle)
	}

	c := store.Counts()
	assert.Equal(t, 2, c.Success)
	assert.Equal(t, 0, c.Warning)
	assert.Equal(t, 0, c.Error)
	assert.Len(t, fake.importCalls, 2)
	assert.Equal(t, "tt1", fake.importCalls[0].MetaID)
	assert.Equal(t, "series", fake.importCalls[0].MetaType)
}

func TestRun_AnalyzeFailureIsIsolated(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "One.S01E01", "Two.S01E01", "Three.S01E01")

	fake := &fakeCatalog{}
	fake.analyzeFn = func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
		if len(fake.analyzeCalls) == 2 { // second item
			return nil, errors.New("connection reset")
		}
		return &catalog.AnalyzeResult{
			Status:  "success",
			Matches: []catalog.Match{{Title: "x", IMDBID: "tt1"}},
		}, nil
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.NoError(t, s.Run(context.Background()))

	statuses := make([]batch.Status, 3)
	for i, id := range ids {
		it, _ := store.Get(id)
		statuses[i] = it.Status
	}
	assert.Equal(t, []batch.Status{batch.StatusSuccess, batch.StatusError, batch.StatusSuccess}, statuses)

	second, _ := store.Get(ids[1])
	assert.Contains(t, second.ErrorMessage, "connection reset")
}

func TestRun_NoMatchIsErrorAndSkipsImport(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Obscure.Movie.2024.1080p")

	fake := &fakeCatalog{
		analyzeFn: func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
			return &catalog.AnalyzeResult{Status: "success", Matches: nil}, nil
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.NoError(t, s.Run(context.Background()))

	it, _ := store.Get(ids[0])
	assert.Equal(t, batch.StatusError, it.Status)
	assert.Equal(t, "no metadata match found", it.ErrorMessage)
	assert.Empty(t, fake.importCalls, "import must not be called without a match")
}

func TestRun_SportsProceedsWithoutMatches(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "UFC.300.PPV.1080p")

	fake := &fakeCatalog{
		analyzeFn: func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
			return &catalog.AnalyzeResult{Status: "success"}, nil
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.NoError(t, s.Run(context.Background()))

	it, _ := store.Get(ids[0])
	assert.Equal(t, batch.StatusSuccess, it.Status)
	require.Len(t, fake.importCalls, 1)
	assert.Equal(t, "sports", fake.importCalls[0].MetaType)
	assert.Equal(t, string(detect.SportsFighting), fake.importCalls[0].SportsCategory)
}

func TestRun_PauseAndResumeProcessesEachItemOnce(t *testing.T) {
	store := batch.NewStore()
	names := []string{"A.S01E01", "B.S01E01", "C.S01E01", "D.S01E01", "E.S01E01"}
	addMagnets(t, store, names...)

	fake := &fakeCatalog{}
	s := newSweeper(store, fake, Config{AutoImport: true})

	fake.importFn = func(req catalog.ImportRequest) (*catalog.ImportResult, error) {
		if len(fake.importCalls) == 1 {
			s.Pause() // takes effect after this item finishes
		}
		return &catalog.ImportResult{Status: catalog.ImportStatusSuccess}, nil
	}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, store.Counts().Success)
	assert.Equal(t, 4, store.Counts().Pending)
	assert.Equal(t, 1, s.Cursor())

	s.Resume()
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 5, store.Counts().Success)
	require.Len(t, fake.analyzeCalls, 5, "each item analyzed exactly once")

	// Items were processed in original order.
	for i, call := range fake.analyzeCalls {
		assert.Equal(t, magnetRef(i, names[i]), call.MagnetURI)
	}
}

func TestRun_AutoImportDisabledLeavesPendingWithMatch(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01.1080p")

	fake := &fakeCatalog{}
	s := newSweeper(store, fake, Config{AutoImport: false})

	require.NoError(t, s.Run(context.Background()))

	it, _ := store.Get(ids[0])
	assert.Equal(t, batch.StatusPending, it.Status)
	assert.Equal(t, "tt1", it.MatchID)
	assert.Empty(t, fake.importCalls)

	// The sweep terminated even though the item is pending again: the
	// cursor moved past it.
	assert.Equal(t, 1, s.Cursor())
}

func TestRun_AnalyzeOnlySessionCanBeImportedLater(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01.1080p", "Show.S01E02.1080p")

	fake := &fakeCatalog{}
	review := newSweeper(store, fake, Config{AutoImport: false})
	require.NoError(t, review.Run(context.Background()))
	require.Equal(t, len(ids), store.Counts().Pending)
	require.Empty(t, fake.importCalls)

	// A fresh sweep over the reviewed items starts from the top and
	// imports them. The review pass must not leave the batch stuck.
	confirm := newSweeper(store, fake, Config{AutoImport: true})
	require.NoError(t, confirm.Run(context.Background()))

	assert.Equal(t, len(ids), store.Counts().Success)
	assert.Len(t, fake.importCalls, len(ids))
	for _, id := range ids {
		it, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "tt1", it.MatchID)
	}
}

func TestRun_CanceledAnalyzeReturnsItemToPending(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01.1080p")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakeCatalog{
		analyzeFn: func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
			cancel()
			return nil, fmt.Errorf("analyze: %w", context.Canceled)
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.ErrorIs(t, s.Run(ctx), context.Canceled)

	it, err := store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, batch.StatusPending, it.Status)
	assert.Empty(t, it.ErrorMessage)
	assert.Equal(t, 0, store.Counts().Error)
}

func TestRun_CanceledImportReturnsItemToPending(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01.1080p")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakeCatalog{
		importFn: func(req catalog.ImportRequest) (*catalog.ImportResult, error) {
			cancel()
			return nil, fmt.Errorf("import: %w", context.Canceled)
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.ErrorIs(t, s.Run(ctx), context.Canceled)

	it, err := store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, batch.StatusPending, it.Status)
	assert.Equal(t, 0, store.Counts().Error)
	// The call itself still went out before the cancel landed.
	assert.Len(t, fake.importCalls, 1)
}

func TestRun_SkippedItemsAreNotProcessed(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "A.S01E01", "B.S01E01")
	require.NoError(t, store.SetSkipped(ids[0], true))

	fake := &fakeCatalog{}
	s := newSweeper(store, fake, Config{AutoImport: true})
	require.NoError(t, s.Run(context.Background()))

	first, _ := store.Get(ids[0])
	assert.Equal(t, batch.StatusSkipped, first.Status)
	assert.Len(t, fake.analyzeCalls, 1)
}

func TestRun_ImportOutcomeMapping(t *testing.T) {
	tests := []struct {
		name        string
		result      *catalog.ImportResult
		wantStatus  batch.Status
		wantMessage string
	}{
		{"success", &catalog.ImportResult{Status: catalog.ImportStatusSuccess}, batch.StatusSuccess, ""},
		{"processing counts as success", &catalog.ImportResult{Status: catalog.ImportStatusProcessing}, batch.StatusSuccess, ""},
		{"warning keeps message", &catalog.ImportResult{Status: catalog.ImportStatusWarning, Message: "low seeders"}, batch.StatusWarning, "low seeders"},
		{"needs annotation", &catalog.ImportResult{Status: catalog.ImportStatusNeedsAnnotation}, batch.StatusWarning, "per-file annotation required"},
		{"validation failed", &catalog.ImportResult{Status: catalog.ImportStatusValidationFailed}, batch.StatusWarning, "validation failed"},
		{"unknown status is error", &catalog.ImportResult{Status: "exploded"}, batch.StatusError, `import failed with status "exploded"`},
		{"error joins issue messages", &catalog.ImportResult{
			Status: catalog.ImportStatusError,
			Errors: []catalog.ImportIssue{{Type: "title", Message: "title mismatch"}, {Type: "meta", Message: "bad id"}},
		}, batch.StatusError, "title mismatch; bad id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := classifyImport(tt.result)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestRetry(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01")

	fail := true
	fake := &fakeCatalog{
		analyzeFn: func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
			if fail {
				return nil, errors.New("timeout")
			}
			return &catalog.AnalyzeResult{Matches: []catalog.Match{{Title: "Show", IMDBID: "tt1"}}}, nil
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})

	require.NoError(t, s.Run(context.Background()))
	it, _ := store.Get(ids[0])
	require.Equal(t, batch.StatusError, it.Status)

	fail = false
	require.NoError(t, s.Retry(context.Background(), ids[0]))

	it, _ = store.Get(ids[0])
	assert.Equal(t, batch.StatusSuccess, it.Status)
	assert.Empty(t, it.ErrorMessage)
}

func TestRetry_RejectsNonRetryable(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01")

	s := newSweeper(store, &fakeCatalog{}, Config{AutoImport: true})
	require.NoError(t, s.Run(context.Background()))

	err := s.Retry(context.Background(), ids[0]) // item is success
	assert.ErrorIs(t, err, ErrNotRetryable)

	err = s.Retry(context.Background(), 99)
	assert.ErrorIs(t, err, batch.ErrNotFound)
}

func TestRun_TorrentSourceDownloadsBytes(t *testing.T) {
	store := batch.NewStore()
	it, err := batch.NewItem("https://example.com/some.movie.2024.torrent", "Some Movie 2024")
	require.NoError(t, err)
	id := store.Add(it)

	fake := &fakeCatalog{
		torrents: map[string][]byte{
			"https://example.com/some.movie.2024.torrent": []byte("d4:infoe"),
		},
	}
	s := newSweeper(store, fake, Config{AutoImport: true})
	require.NoError(t, s.Run(context.Background()))

	got, _ := store.Get(id)
	assert.Equal(t, batch.StatusSuccess, got.Status)
	require.Len(t, fake.analyzeCalls, 1)
	assert.Equal(t, []byte("d4:infoe"), fake.analyzeCalls[0].TorrentData)
	assert.Empty(t, fake.analyzeCalls[0].MagnetURI)
}

func TestRun_TorrentDownloadFailureIsError(t *testing.T) {
	store := batch.NewStore()
	it, err := batch.NewItem("https://example.com/missing.torrent", "Missing")
	require.NoError(t, err)
	id := store.Add(it)

	s := newSweeper(store, &fakeCatalog{}, Config{AutoImport: true})
	require.NoError(t, s.Run(context.Background()))

	got, _ := store.Get(id)
	assert.Equal(t, batch.StatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "download torrent")
}

func TestRun_MetaIDOverride(t *testing.T) {
	store := batch.NewStore()
	addMagnets(t, store, "Show.S01E01")

	fake := &fakeCatalog{}
	s := newSweeper(store, fake, Config{AutoImport: true, MetaIDOverride: "tt9999"})
	require.NoError(t, s.Run(context.Background()))

	require.Len(t, fake.importCalls, 1)
	assert.Equal(t, "tt9999", fake.importCalls[0].MetaID)
}

func TestFetchAnnotations(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.Complete.S01")

	two := 2
	fake := &fakeCatalog{
		analyzeFn: func(req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error) {
			return &catalog.AnalyzeResult{
				Matches: []catalog.Match{{Title: "Show", IMDBID: "tt1"}},
				Files: []catalog.AnalyzedFile{
					{Index: 0, Filename: "e1.mkv", Size: 100, SeasonNumber: &two},
					{Index: 1, Filename: "e2.mkv", Size: 200},
				},
			}, nil
		},
	}
	s := newSweeper(store, fake, Config{})

	files, err := s.FetchAnnotations(context.Background(), ids[0])
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0].Included)
	require.NotNil(t, files[0].Season)
	assert.Equal(t, 2, *files[0].Season)
	assert.Nil(t, files[1].Season)

	// Status untouched by a metadata-only fetch.
	it, _ := store.Get(ids[0])
	assert.Equal(t, batch.StatusPending, it.Status)
}

func TestFetchAnnotations_NoFiles(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.S01E01")

	s := newSweeper(store, &fakeCatalog{}, Config{})
	_, err := s.FetchAnnotations(context.Background(), ids[0])
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestImportAnnotated(t *testing.T) {
	store := batch.NewStore()
	ids := addMagnets(t, store, "Show.Complete.S01")

	fake := &fakeCatalog{}
	// Leave the item in warning first, the way the unattended sweep would.
	fake.importFn = func(req catalog.ImportRequest) (*catalog.ImportResult, error) {
		if len(fake.importCalls) == 1 {
			return &catalog.ImportResult{Status: catalog.ImportStatusNeedsAnnotation}, nil
		}
		return &catalog.ImportResult{Status: catalog.ImportStatusSuccess}, nil
	}
	s := newSweeper(store, fake, Config{AutoImport: true})
	require.NoError(t, s.Run(context.Background()))

	it, _ := store.Get(ids[0])
	require.Equal(t, batch.StatusWarning, it.Status)

	one, three := 1, 3
	files := []annotate.FileAnnotation{
		{Index: 0, Filename: "e1.mkv", Season: &one, Episode: &one, Included: true},
		{Index: 1, Filename: "extras.mkv", Included: false},
		{Index: 2, Filename: "e3.mkv", Season: &one, Episode: &three, Included: true},
	}
	require.NoError(t, s.ImportAnnotated(context.Background(), ids[0], files, true))

	it, _ = store.Get(ids[0])
	assert.Equal(t, batch.StatusSuccess, it.Status)

	require.Len(t, fake.importCalls, 2)
	last := fake.importCalls[1]
	assert.True(t, last.ForceImport)
	assert.Contains(t, last.FileData, `"e1.mkv"`)
	assert.NotContains(t, last.FileData, "extras.mkv", "excluded files are never submitted")
}
