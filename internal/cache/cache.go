// Package cache deduplicates and remembers audio fetches keyed by source id.
// At most one fetch runs per id; concurrent requests for the same id wait on
// the in-flight fetch and share its result. Failures are remembered but
// retryable, so a later request for the same id starts a fresh fetch.
package cache

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// State of a cache entry.
type State int

const (
	Pending State = iota
	Ready
	Failed
)

// Track identifies one piece of audio and carries its display metadata.
type Track struct {
	SourceID  string
	Title     string
	Performer string
}

// FetchFunc produces the artifact for a track and returns its path.
type FetchFunc func(ctx context.Context) (string, error)

var ErrBusy = errors.New("too many downloads in progress")

type entry struct {
	state State
	path  string
	err   error
	done  chan struct{} // closed when the entry leaves Pending
}

// Store is the in-memory fetch cache. Distinct ids fetch concurrently up to
// the pool limit; Index, when set, persists Ready entries across restarts.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	pool    *semaphore.Weighted
	index   *Index
	log     *zap.Logger
}

func NewStore(concurrency int64, index *Index, log *zap.Logger) *Store {
	if concurrency <= 0 {
		concurrency = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		entries: make(map[string]*entry),
		pool:    semaphore.NewWeighted(concurrency),
		index:   index,
		log:     log,
	}
	if index != nil {
		s.warm()
	}
	return s
}

// warm seeds Ready entries from the index, skipping rows whose file is gone.
func (s *Store) warm() {
	rows, err := s.index.Load()
	if err != nil {
		s.log.Warn("cache index load failed", zap.Error(err))
		return
	}
	n := 0
	for _, r := range rows {
		if fi, err := os.Stat(r.Path); err != nil || fi.Size() == 0 {
			continue
		}
		done := make(chan struct{})
		close(done)
		s.entries[r.SourceID] = &entry{state: Ready, path: r.Path, done: done}
		n++
	}
	s.log.Info("cache warmed from index", zap.Int("entries", n))
}

// Lookup reports the cached path for an id without triggering a fetch.
func (s *Store) Lookup(sourceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sourceID]
	if !ok || e.state != Ready {
		return "", false
	}
	return e.path, true
}

// GetOrFetch returns the artifact path for the track, fetching it if needed.
// When another fetch for the same id is already running, it waits for that
// fetch and returns its result. ctx cancels the wait, not the fetch itself;
// the fetch runs under whatever ctx its initiating caller passed.
func (s *Store) GetOrFetch(ctx context.Context, t Track, fetch FetchFunc) (string, error) {
	s.mu.Lock()
	e, ok := s.entries[t.SourceID]
	if ok {
		switch e.state {
		case Ready:
			s.mu.Unlock()
			return e.path, nil
		case Pending:
			wait := e.done
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-wait:
				s.mu.Lock()
				res := s.entries[t.SourceID]
				s.mu.Unlock()
				if res != nil && res.state == Ready {
					return res.path, nil
				}
				if res != nil && res.err != nil {
					return "", res.err
				}
				return "", errors.New("download did not complete")
			}
		case Failed:
			// Fall through and retry with a fresh entry.
		}
	}
	e = &entry{state: Pending, done: make(chan struct{})}
	s.entries[t.SourceID] = e
	s.mu.Unlock()

	return s.runFetch(ctx, t, e, fetch)
}

// runFetch executes the fetch for an entry this goroutine owns. The entry
// always leaves Pending, whatever path this takes.
func (s *Store) runFetch(ctx context.Context, t Track, e *entry, fetch FetchFunc) (string, error) {
	finish := func(state State, path string, err error) {
		s.mu.Lock()
		e.state = state
		e.path = path
		e.err = err
		if state == Failed && err == nil {
			e.err = errors.New("download failed")
		}
		close(e.done)
		s.mu.Unlock()
	}

	if err := s.pool.Acquire(ctx, 1); err != nil {
		if ctx.Err() != nil {
			finish(Failed, "", ctx.Err())
			return "", ctx.Err()
		}
		finish(Failed, "", ErrBusy)
		return "", ErrBusy
	}
	defer s.pool.Release(1)

	path, err := fetch(ctx)
	if err != nil {
		finish(Failed, "", err)
		return "", err
	}
	fi, statErr := os.Stat(path)
	if statErr != nil || fi.Size() == 0 {
		err = errors.New("fetch produced no artifact: " + path)
		finish(Failed, "", err)
		return "", err
	}

	finish(Ready, path, nil)
	if s.index != nil {
		if ierr := s.index.Record(t, path, fi.Size()); ierr != nil {
			s.log.Warn("cache index record failed",
				zap.String("source_id", t.SourceID), zap.Error(ierr))
		}
	}
	return path, nil
}
