package batch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bulkarr/bulkarr/pkg/detect"
)

// Counts are aggregate per-status totals, maintained incrementally as items
// transition rather than recomputed by scanning.
type Counts struct {
	Pending   int
	Skipped   int
	Analyzing int
	Importing int
	Success   int
	Warning   int
	Error     int
}

// Completed is the number of items with a processed outcome.
func (c Counts) Completed() int {
	return c.Success + c.Warning + c.Error
}

// Total is the number of items in the batch.
func (c Counts) Total() int {
	return c.Pending + c.Skipped + c.Analyzing + c.Importing + c.Completed()
}

// Store is the ordered, in-memory collection of batch items. All mutation
// goes through store methods so the aggregate counters stay consistent; the
// orchestrator and user actions both operate on item ids.
type Store struct {
	mu     sync.RWMutex
	items  []Item
	nextID int
	counts Counts
}

// NewStore creates an empty item store.
func NewStore() *Store {
	return &Store{}
}

// Add appends an item, assigns its id, and returns the id.
func (s *Store) Add(it Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	it.ID = s.nextID
	s.nextID++
	if it.Status == "" {
		it.Status = StatusPending
	}
	s.items = append(s.items, it)
	s.bump(it.Status, +1)
	return it.ID
}

// AddAll appends items in order and returns their ids.
func (s *Store) AddAll(items []Item) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = s.Add(it)
	}
	return ids
}

// Len returns the number of items in the batch.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id int) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, _, err := s.find(id)
	if err != nil {
		return Item{}, err
	}
	return *it, nil
}

// Items returns a snapshot of all items in stable batch order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Counts returns the current aggregate totals.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts
}

// NextPending scans forward from position `from` in stable order and returns
// a copy of the first pending item together with its position. ok is false
// when no pending item remains at or after `from`.
func (s *Store) NextPending(from int) (it Item, pos int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	for i := from; i < len(s.items); i++ {
		if s.items[i].Status == StatusPending {
			return s.items[i], i, true
		}
	}
	return Item{}, 0, false
}

// Transition changes an item's status after validating the state machine.
func (s *Store) Transition(id int, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, to)
}

func (s *Store) transitionLocked(id int, to Status) error {
	it, _, err := s.find(id)
	if err != nil {
		return err
	}
	if !it.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, it.Status, to)
	}
	s.bump(it.Status, -1)
	it.Status = to
	s.bump(to, +1)
	return nil
}

// SetOutcome transitions an item to a terminal outcome and records the
// message carried by warning/error outcomes.
func (s *Store) SetOutcome(id int, to Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionLocked(id, to); err != nil {
		return err
	}
	it, _, _ := s.find(id)
	switch to {
	case StatusWarning, StatusError:
		it.ErrorMessage = message
	default:
		it.ErrorMessage = ""
	}
	return nil
}

// SetMatch records the canonical title and id resolved by the analyze step.
func (s *Store) SetMatch(id int, matchTitle, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, _, err := s.find(id)
	if err != nil {
		return err
	}
	it.MatchTitle = matchTitle
	it.MatchID = matchID
	return nil
}

// SetContentType applies a user reclassification. The detected type is left
// untouched so overrides stay visible. The sports category must be supplied
// exactly when the new type is sports.
func (s *Store) SetContentType(id int, ct detect.ContentType, sc detect.SportsCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, _, err := s.find(id)
	if err != nil {
		return err
	}
	if it.Status.InFlight() {
		return fmt.Errorf("%w: item %d", ErrItemBusy, id)
	}
	if ct == detect.ContentTypeSports && sc == "" {
		return ErrSportsCategoryRequired
	}
	if ct != detect.ContentTypeSports {
		sc = ""
	}
	it.ContentType = ct
	it.SportsCategory = sc
	return nil
}

// SetSkipped toggles an item between pending and skipped.
func (s *Store) SetSkipped(id int, skipped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, _, err := s.find(id)
	if err != nil {
		return err
	}
	to := StatusPending
	if skipped {
		to = StatusSkipped
	}
	if it.Status == to {
		return nil
	}
	return s.transitionLocked(id, to)
}

// Filter selects a presentation view of the batch. Zero values match
// everything; filtering never changes how items are processed.
type Filter struct {
	ContentType detect.ContentType
	SourceType  SourceType
	Status      Status
	Search      string
}

func (f Filter) matches(it Item) bool {
	if f.ContentType != "" && it.ContentType != f.ContentType {
		return false
	}
	if f.SourceType != "" && it.SourceType != f.SourceType {
		return false
	}
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(it.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// View returns copies of the items matching the filter, in batch order.
func (s *Store) View(f Filter) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Item
	for _, it := range s.items {
		if f.matches(it) {
			out = append(out, it)
		}
	}
	return out
}

// MarkVisible bulk-skips or bulk-restores every filtered item that is
// currently toggleable (pending or skipped) and returns how many changed.
func (s *Store) MarkVisible(f Filter, skipped bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	to := StatusPending
	if skipped {
		to = StatusSkipped
	}

	changed := 0
	for i := range s.items {
		it := &s.items[i]
		if !f.matches(*it) || it.Status == to {
			continue
		}
		if it.Status.CanTransitionTo(to) {
			s.bump(it.Status, -1)
			it.Status = to
			s.bump(to, +1)
			changed++
		}
	}
	return changed
}

func (s *Store) find(id int) (*Item, int, error) {
	// ids are assigned sequentially from zero, so the common case is a
	// direct index hit.
	if id >= 0 && id < len(s.items) && s.items[id].ID == id {
		return &s.items[id], id, nil
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], i, nil
		}
	}
	return nil, 0, fmt.Errorf("item %d: %w", id, ErrNotFound)
}

func (s *Store) bump(st Status, delta int) {
	switch st {
	case StatusPending:
		s.counts.Pending += delta
	case StatusSkipped:
		s.counts.Skipped += delta
	case StatusAnalyzing:
		s.counts.Analyzing += delta
	case StatusImporting:
		s.counts.Importing += delta
	case StatusSuccess:
		s.counts.Success += delta
	case StatusWarning:
		s.counts.Warning += delta
	case StatusError:
		s.counts.Error += delta
	}
}
