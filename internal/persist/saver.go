package persist

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"todolist/internal/models"
)

// ErrSaverClosed is returned by Save after Close.
var ErrSaverClosed = errors.New("saver closed")

// AsyncSaver moves saves off the caller's goroutine. A single worker writes
// snapshots one at a time; when several are queued only the newest is
// written, so the slot always ends at the most recent snapshot.
type AsyncSaver struct {
	next   *Adapter
	logger *log.Logger
	ctx    context.Context

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []models.Task
	queued   uint64
	written  uint64
	lastErr  error
	closed   bool
	wake     chan struct{}
	stop     chan struct{}
	finished chan struct{}
}

// NewAsyncSaver starts the worker. ctx bounds every write.
func NewAsyncSaver(ctx context.Context, next *Adapter, logger *log.Logger) *AsyncSaver {
	if logger == nil {
		logger = log.Default()
	}
	s := &AsyncSaver{
		next:     next,
		logger:   logger,
		ctx:      ctx,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.run()
	return s
}

// Load reads through to the wrapped adapter.
func (s *AsyncSaver) Load(ctx context.Context) ([]models.Task, error) {
	return s.next.Load(ctx)
}

// Save queues tasks for writing and returns immediately. The caller must not
// modify tasks afterwards.
func (s *AsyncSaver) Save(_ context.Context, tasks []models.Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSaverClosed
	}
	s.pending = tasks
	s.queued++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush blocks until every queued snapshot has been written and returns the
// error of the last write, if any.
func (s *AsyncSaver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.written < s.queued {
		s.cond.Wait()
	}
	return s.lastErr
}

// Close writes any queued snapshot and stops the worker.
func (s *AsyncSaver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	<-s.finished

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *AsyncSaver) run() {
	defer close(s.finished)

	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *AsyncSaver) drain() {
	for {
		s.mu.Lock()
		if s.written == s.queued {
			s.mu.Unlock()
			return
		}
		snapshot, seq := s.pending, s.queued
		s.pending = nil
		s.mu.Unlock()

		err := s.next.Save(s.ctx, snapshot)
		if err != nil {
			s.logger.Error("failed to save tasks", "err", err, "count", len(snapshot))
		}

		s.mu.Lock()
		s.written = seq
		s.lastErr = err
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}
