// Package sweep drives batch items through analyze and import against the
// catalog, one item at a time.
package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/catalog"
	"github.com/bulkarr/bulkarr/pkg/annotate"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

// CatalogAPI is the catalog surface the orchestrator needs.
type CatalogAPI interface {
	Analyze(ctx context.Context, req catalog.AnalyzeRequest) (*catalog.AnalyzeResult, error)
	Import(ctx context.Context, req catalog.ImportRequest) (*catalog.ImportResult, error)
	DownloadTorrent(ctx context.Context, url string) ([]byte, error)
}

// Config for the orchestrator.
type Config struct {
	// AutoImport continues past analyze into import. When false the sweep
	// only resolves matches, returning items to pending for manual review.
	AutoImport bool

	// ItemDelay is the unconditional pause between items, bounding the
	// request rate against the catalog.
	ItemDelay time.Duration

	// MetaIDOverride, when set, replaces every item's resolved meta id on
	// import. Used when the whole batch belongs to one known title.
	MetaIDOverride string
}

// Sweeper walks pending items in stable order, calling out to the catalog
// and recording per-item outcomes in the store. Exactly one item is in
// flight at any time; the catalog's import path is not built for concurrent
// bulk writes from one client.
type Sweeper struct {
	store   *batch.Store
	catalog CatalogAPI
	cfg     Config
	log     *slog.Logger

	mu      sync.Mutex
	running bool
	cursor  int
	paused  atomic.Bool
}

// New creates a sweeper over the given store and catalog client.
func New(store *batch.Store, api CatalogAPI, cfg Config, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		store:   store,
		catalog: api,
		cfg:     cfg,
		log:     log,
	}
}

// Pause requests a cooperative stop. The item currently in flight always
// completes; the sweep then returns with its cursor preserved.
func (s *Sweeper) Pause() { s.paused.Store(true) }

// Resume clears the pause flag. The caller restarts the sweep with Run,
// which continues from the preserved cursor.
func (s *Sweeper) Resume() { s.paused.Store(false) }

// Paused reports whether a pause has been requested.
func (s *Sweeper) Paused() bool { return s.paused.Load() }

// Cursor returns the position the next Run will start from.
func (s *Sweeper) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// SetCursor positions the sweep. The next Run starts from pos.
func (s *Sweeper) SetCursor(pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = pos
}

// Run processes pending items from the cursor until none remain, the pause
// flag is set, or the context is canceled. Per-item failures are recorded on
// the item and never abort the sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSweepRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.log.Info("sweep started", "cursor", s.Cursor(), "auto_import", s.cfg.AutoImport)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.paused.Load() {
			s.log.Info("sweep paused", "cursor", s.Cursor())
			return nil
		}

		it, pos, ok := s.store.NextPending(s.Cursor())
		if !ok {
			s.log.Info("sweep complete", "counts", fmt.Sprintf("%+v", s.store.Counts()))
			return nil
		}

		s.processItem(ctx, it, importOpts{})
		s.SetCursor(pos + 1)

		select {
		case <-time.After(s.cfg.ItemDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Retry re-enters the state machine for a single failed item, independent of
// the sweep and of the pause flag.
func (s *Sweeper) Retry(ctx context.Context, id int) error {
	it, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if it.Status.InFlight() {
		return fmt.Errorf("%w: item %d", batch.ErrItemBusy, id)
	}
	if !it.Status.CanTransitionTo(batch.StatusAnalyzing) {
		return fmt.Errorf("%w: item %d is %s", ErrNotRetryable, id, it.Status)
	}

	s.processItem(ctx, it, importOpts{})
	return nil
}

// FetchAnnotations analyzes an item and returns its file list as annotation
// entries, seeded with whatever season/episode data the catalog detected.
// The item's status is not touched.
func (s *Sweeper) FetchAnnotations(ctx context.Context, id int) ([]annotate.FileAnnotation, error) {
	it, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	req, err := s.analyzeRequest(ctx, it)
	if err != nil {
		return nil, err
	}
	result, err := s.catalog.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if len(result.Files) == 0 {
		return nil, fmt.Errorf("item %d: %w", id, ErrNoFiles)
	}

	files := make([]annotate.FileAnnotation, len(result.Files))
	for i, f := range result.Files {
		files[i] = annotate.FileAnnotation{
			Index:    f.Index,
			Filename: f.Filename,
			Size:     f.Size,
			Season:   f.SeasonNumber,
			Episode:  f.EpisodeNumber,
			Included: true,
		}
	}
	return files, nil
}

// ImportAnnotated re-runs a single item through analyze and import with an
// explicit per-file annotation list attached, optionally forcing past remote
// validation. This is the manual escalation path for items the unattended
// sweep left in warning.
func (s *Sweeper) ImportAnnotated(ctx context.Context, id int, files []annotate.FileAnnotation, force bool) error {
	it, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if it.Status.InFlight() {
		return fmt.Errorf("%w: item %d", batch.ErrItemBusy, id)
	}
	if !it.Status.CanTransitionTo(batch.StatusAnalyzing) {
		return fmt.Errorf("%w: item %d is %s", ErrNotRetryable, id, it.Status)
	}

	included := make([]annotate.FileAnnotation, 0, len(files))
	for _, f := range files {
		if f.Included {
			included = append(included, f)
		}
	}
	data, err := json.Marshal(included)
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}

	s.processItem(ctx, it, importOpts{manual: true, fileData: string(data), force: force})
	return nil
}

// importOpts carry the manual-flow extras attached to an import call.
type importOpts struct {
	// manual flows always import, even when the sweep itself only analyzes.
	manual   bool
	fileData string
	force    bool
}

// processItem runs one item through the analyze/import state machine. All
// failures end up recorded on the item; the method never returns an error to
// keep per-item outcomes isolated.
func (s *Sweeper) processItem(ctx context.Context, it batch.Item, opts importOpts) {
	log := s.log.With("item_id", it.ID, "title", it.Title)

	if err := s.store.Transition(it.ID, batch.StatusAnalyzing); err != nil {
		log.Error("cannot start item", "error", err)
		return
	}

	req, err := s.analyzeRequest(ctx, it)
	if err != nil {
		if interrupted(err) {
			s.requeue(it.ID, log)
			return
		}
		log.Error("source fetch failed", "error", err)
		s.fail(it.ID, batch.StatusError, err.Error())
		return
	}

	result, err := s.catalog.Analyze(ctx, req)
	if err != nil {
		if interrupted(err) {
			s.requeue(it.ID, log)
			return
		}
		log.Error("analyze failed", "error", err)
		s.fail(it.ID, batch.StatusError, err.Error())
		return
	}

	best, found := pickBestMatch(it.Title, result.Matches)
	if !found && it.ContentType != detect.ContentTypeSports {
		log.Warn("no metadata match")
		s.fail(it.ID, batch.StatusError, errNoMetadataMatch)
		return
	}
	if found {
		if err := s.store.SetMatch(it.ID, best.Title, best.MetaID()); err != nil {
			log.Error("record match failed", "error", err)
		}
	}

	if !s.cfg.AutoImport && !opts.manual {
		// Leave the item for manual review with match fields populated.
		if err := s.store.Transition(it.ID, batch.StatusPending); err != nil {
			log.Error("return to pending failed", "error", err)
		}
		log.Debug("analyzed only", "match_id", best.MetaID())
		return
	}

	if err := s.store.Transition(it.ID, batch.StatusImporting); err != nil {
		log.Error("cannot enter import", "error", err)
		return
	}

	importReq := s.importRequest(it, req, result, best, opts)
	importResult, err := s.catalog.Import(ctx, importReq)
	if err != nil {
		if interrupted(err) {
			s.requeue(it.ID, log)
			return
		}
		log.Error("import failed", "error", err)
		s.fail(it.ID, batch.StatusError, err.Error())
		return
	}

	status, message := classifyImport(importResult)
	if err := s.store.SetOutcome(it.ID, status, message); err != nil {
		log.Error("record outcome failed", "error", err)
		return
	}
	log.Info("item processed", "status", status, "message", message)
}

// analyzeRequest builds the analyze payload, downloading .torrent bytes for
// URL-sourced items first.
func (s *Sweeper) analyzeRequest(ctx context.Context, it batch.Item) (catalog.AnalyzeRequest, error) {
	req := catalog.AnalyzeRequest{MetaType: string(it.ContentType)}

	switch it.SourceType {
	case batch.SourceTorrent:
		data, err := s.catalog.DownloadTorrent(ctx, it.SourceRef)
		if err != nil {
			return catalog.AnalyzeRequest{}, fmt.Errorf("download torrent: %w", err)
		}
		req.TorrentData = data
	default:
		req.MagnetURI = it.SourceRef
	}
	return req, nil
}

// importRequest assembles the enriched import payload from the item, the
// analyze result's stream attributes, and the resolved match.
func (s *Sweeper) importRequest(it batch.Item, analyzeReq catalog.AnalyzeRequest,
	result *catalog.AnalyzeResult, best catalog.Match, opts importOpts) catalog.ImportRequest {

	metaID := best.MetaID()
	if s.cfg.MetaIDOverride != "" {
		metaID = s.cfg.MetaIDOverride
	}

	return catalog.ImportRequest{
		MagnetURI:   analyzeReq.MagnetURI,
		TorrentData: analyzeReq.TorrentData,

		MetaType: string(it.ContentType),
		MetaID:   metaID,
		Title:    it.Title,

		Resolution: result.Resolution,
		Quality:    result.Quality,
		Codec:      result.Codec,
		Audio:      result.Audio,
		HDR:        result.HDR,
		Languages:  result.Languages,

		SportsCategory: string(it.SportsCategory),

		FileData:    opts.fileData,
		ForceImport: opts.force,
	}
}

// classifyImport maps a catalog import response onto an item outcome.
// needs_annotation and validation_failed surface as warnings; the unattended
// sweep never guesses annotation data or forces past validation.
func classifyImport(result *catalog.ImportResult) (batch.Status, string) {
	message := result.Message
	if message == "" && len(result.Errors) > 0 {
		parts := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			parts[i] = e.Message
		}
		message = strings.Join(parts, "; ")
	}

	switch result.Status {
	case catalog.ImportStatusSuccess, catalog.ImportStatusProcessing:
		return batch.StatusSuccess, ""
	case catalog.ImportStatusWarning:
		return batch.StatusWarning, message
	case catalog.ImportStatusNeedsAnnotation:
		if message == "" {
			message = "per-file annotation required"
		}
		return batch.StatusWarning, message
	case catalog.ImportStatusValidationFailed:
		if message == "" {
			message = "validation failed"
		}
		return batch.StatusWarning, message
	default:
		if message == "" {
			message = fmt.Sprintf("import failed with status %q", result.Status)
		}
		return batch.StatusError, message
	}
}

// interrupted reports whether an item failure came from the run being
// canceled rather than from the item itself.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// requeue returns an interrupted item to pending. The next run retries it
// from scratch; a canceled call must never count as a terminal outcome,
// and for imports the remote side may have committed anyway.
func (s *Sweeper) requeue(id int, log *slog.Logger) {
	if err := s.store.Transition(id, batch.StatusPending); err != nil {
		log.Error("requeue interrupted item", "error", err)
		return
	}
	log.Info("interrupted, returned to pending")
}

// fail records a terminal failure outcome, logging if even that fails.
func (s *Sweeper) fail(id int, status batch.Status, message string) {
	if err := s.store.SetOutcome(id, status, message); err != nil {
		s.log.Error("record failure outcome", "item_id", id, "error", err)
	}
}
