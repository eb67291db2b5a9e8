package database

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/photo-library/internal/library"
)

// Sink forwards committed library changes to a CommitWriter in the background.
// OnCommit only appends to a queue, so the library never waits on the database.
// Failed batches stay queued and are retried on the next flush. A batch that
// is rejected, or keeps failing, is retried change by change and the changes
// the writer rejects with ErrRejected are dropped.
type Sink struct {
	writer      CommitWriter
	interval    time.Duration
	maxBatch    int
	maxAttempts int

	flushMu  sync.Mutex
	attempts int

	mu      sync.Mutex
	pending []library.Change
	written int
	failed  int
	dropped int
	lastErr error

	wake chan struct{}
	done chan struct{}
}

// NewSink creates a sink writing to w. Call Run to start the worker.
func NewSink(w CommitWriter) *Sink {
	return &Sink{
		writer:      w,
		interval:    SinkFlushInterval,
		maxBatch:    SinkMaxBatch,
		maxAttempts: SinkMaxAttempts,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// OnCommit queues the changes of c.
func (s *Sink) OnCommit(c library.Commit) {
	s.mu.Lock()
	s.pending = append(s.pending, c.Changes...)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run writes queued changes until ctx is cancelled, then makes a final flush
// attempt with a fresh context.
func (s *Sink) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.Flush(flushCtx); err != nil {
				log.Printf("sink: final flush failed, %d changes not persisted: %v", s.Pending(), err)
			}
			cancel()
			return
		case <-s.wake:
		case <-ticker.C:
		}
		if err := s.Flush(ctx); err != nil {
			log.Printf("sink: write failed, will retry: %v", err)
		}
	}
}

// Done is closed when Run returns.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Flush writes everything queued so far in batches of at most maxBatch changes.
func (s *Sink) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	for {
		s.mu.Lock()
		n := min(len(s.pending), s.maxBatch)
		batch := s.pending[:n:n]
		s.mu.Unlock()

		if n == 0 {
			return nil
		}
		err := s.writer.ApplyChanges(ctx, batch)
		if err != nil {
			s.attempts++
			s.recordFailure(err)
			if ctx.Err() != nil || (!errors.Is(err, ErrRejected) && s.attempts < s.maxAttempts) {
				return err
			}
			if err := s.writeOneByOne(ctx, batch); err != nil {
				return err
			}
			continue
		}

		s.attempts = 0
		s.mu.Lock()
		s.pending = s.pending[n:]
		s.written += n
		s.lastErr = nil
		s.mu.Unlock()
	}
}

// writeOneByOne writes batch change by change, dropping the changes the writer
// rejects. It stops at the first other error and leaves that change queued.
// Callers hold flushMu and batch is the head of the queue.
func (s *Sink) writeOneByOne(ctx context.Context, batch []library.Change) error {
	for _, c := range batch {
		err := s.writer.ApplyChanges(ctx, []library.Change{c})
		switch {
		case err == nil:
			s.mu.Lock()
			s.written++
			s.mu.Unlock()
		case errors.Is(err, ErrRejected):
			log.Printf("sink: dropping %s %s %s: %v", c.Op, c.Kind, c.ID, err)
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		default:
			s.recordFailure(err)
			return err
		}
		s.mu.Lock()
		s.pending = s.pending[1:]
		s.mu.Unlock()
	}
	s.attempts = 0
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

func (s *Sink) recordFailure(err error) {
	s.mu.Lock()
	s.failed++
	s.lastErr = err
	s.mu.Unlock()
}

// Pending returns the number of queued changes.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SinkStats describes the sink state.
type SinkStats struct {
	Pending int    `json:"pending"`
	Written int    `json:"written"`
	Failed  int    `json:"failed"`
	Dropped int    `json:"dropped"`
	LastErr string `json:"last_error,omitempty"`
}

func (s *Sink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SinkStats{Pending: len(s.pending), Written: s.written, Failed: s.failed, Dropped: s.dropped}
	if s.lastErr != nil {
		st.LastErr = s.lastErr.Error()
	}
	return st
}
