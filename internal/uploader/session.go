package uploader

import (
	"context"
	"sync"
)

// ItemState tracks one item through the pipeline.
type ItemState string

const (
	ItemPending    ItemState = "pending"
	ItemCompressed ItemState = "compressed"
	ItemUploaded   ItemState = "uploaded"
)

// ItemProgress is the per-item view of a session.
type ItemProgress struct {
	ClientID    string
	Name        string
	ContentType string
	Size        int64
	State       ItemState
	PublicURL   string
}

// Snapshot is a copy of a session's state. Mutating it has no effect on the
// session.
type Snapshot struct {
	SessionID string
	Phase     Phase
	Progress  float64
	Items     []ItemProgress
	// URLs holds the public URLs of uploaded items in input order.
	URLs      []string
	Record    *Record
	Err       error
	Discarded []string
}

// Session is a single upload attempt. A failed session is never resumed.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.RWMutex
	phase     Phase
	progress  float64
	items     []ItemProgress
	urls      []string
	record    *Record
	err       error
	discarded []string
}

func newSession(ctx context.Context, id string, items []Item) *Session {
	sctx, cancel := context.WithCancel(ctx)
	progress := make([]ItemProgress, len(items))
	for i, it := range items {
		progress[i] = ItemProgress{
			ClientID:    it.ClientID,
			Name:        it.Name,
			ContentType: it.ContentType,
			Size:        it.Size(),
			State:       ItemPending,
		}
	}
	return &Session{
		id:     id,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
		phase:  PhaseIdle,
		items:  progress,
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session reached complete or failed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the session at the next suspension point.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until the session ends and returns the created record or the
// stage-tagged error.
func (s *Session) Wait() (Record, error) {
	<-s.done
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return Record{}, s.err
	}
	return *s.record, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Phase:     s.phase,
		Progress:  s.progress,
		Items:     append([]ItemProgress(nil), s.items...),
		URLs:      append([]string(nil), s.urls...),
		Err:       s.err,
		Discarded: append([]string(nil), s.discarded...),
	}
	if s.record != nil {
		rec := *s.record
		snap.Record = &rec
	}
	return snap
}

// advance moves the phase and raises progress. Progress never decreases.
func (s *Session) advance(phase Phase, progress float64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	if progress > s.progress {
		s.progress = progress
	}
	return s.snapshotLocked()
}

func (s *Session) setItem(i int, fn func(*ItemProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.items[i])
}

func (s *Session) appendURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
}

func (s *Session) fail(err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseFailed
	s.err = err
	return s.snapshotLocked()
}

func (s *Session) complete(rec Record) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseComplete
	s.progress = progressComplete
	s.record = &rec
	return s.snapshotLocked()
}

func (s *Session) setDiscarded(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append([]string(nil), keys...)
}
