package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/relief-forge/internal/logger"
	"github.com/Faultbox/relief-forge/pkg/simplify"
)

// EventKind classifies session events.
type EventKind int

const (
	EventStarted   EventKind = iota // a generation began
	EventProgress                   // simplification progress, see Event.Simplify
	EventInstalled                  // the generation's result became current
	EventFailed                     // the generation failed, see Event.Err
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventInstalled:
		return "installed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a fire-and-forget notification from a session.
type Event struct {
	Kind       EventKind
	Generation uint64
	RequestID  string
	Simplify   simplify.Event
	Err        error
}

// GenerateFunc produces a result for a request.
type GenerateFunc func(ctx context.Context, req Request, obs simplify.Observer) (*Result, error)

// DefaultEventBuffer is the capacity of the events channel.
const DefaultEventBuffer = 32

// Session keeps at most one current result. Each Submit starts a new
// generation; a result is installed only if no newer generation was
// submitted in the meantime, otherwise it is dropped without an event.
type Session struct {
	generate GenerateFunc
	release  func(*Result)
	events   chan Event

	generation atomic.Uint64
	wg         sync.WaitGroup

	mu      sync.Mutex
	current *Result
	lastErr error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRelease sets a hook called for every result that will never be
// current again: the one replaced by a newer install, and stale results.
// A replaced result is released only after its successor is installed.
func WithRelease(fn func(*Result)) SessionOption {
	return func(s *Session) { s.release = fn }
}

// WithEventBuffer sets the events channel capacity.
func WithEventBuffer(n int) SessionOption {
	return func(s *Session) { s.events = make(chan Event, n) }
}

// WithGenerator replaces Generate, mainly for tests and instrumentation.
func WithGenerator(fn GenerateFunc) SessionOption {
	return func(s *Session) { s.generate = fn }
}

// NewSession returns an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		generate: Generate,
		release:  func(*Result) {},
		events:   make(chan Event, DefaultEventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit starts generating req on a new goroutine and returns its
// generation number.
func (s *Session) Submit(ctx context.Context, req Request) uint64 {
	gen := s.generation.Add(1)
	s.wg.Add(1)
	go s.run(ctx, gen, req)
	return gen
}

func (s *Session) run(ctx context.Context, gen uint64, req Request) {
	defer s.wg.Done()
	log := logger.Named("session").With(logger.RequestID(req.ID), zap.Uint64("generation", gen))

	s.publish(Event{Kind: EventStarted, Generation: gen, RequestID: req.ID})
	res, err := s.generate(ctx, req, func(e simplify.Event) {
		s.publish(Event{Kind: EventProgress, Generation: gen, RequestID: req.ID, Simplify: e})
	})

	s.mu.Lock()
	if gen != s.generation.Load() {
		s.mu.Unlock()
		log.Debug("dropping stale generation", zap.Bool("failed", err != nil))
		if res != nil {
			s.release(res)
		}
		return
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		log.Warn("generation failed", zap.Error(err))
		s.publish(Event{Kind: EventFailed, Generation: gen, RequestID: req.ID, Err: err})
		return
	}
	prev := s.current
	s.current = res
	s.lastErr = nil
	s.mu.Unlock()

	s.publish(Event{Kind: EventInstalled, Generation: gen, RequestID: req.ID})
	if prev != nil {
		s.release(prev)
	}
}

// publish never blocks; events are dropped when nobody keeps up.
func (s *Session) publish(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

// Current returns the installed result, or nil.
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastError returns the error of the latest generation that finished, or
// nil if it installed a result. Stale failures are not recorded.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Generation returns the number of the latest submitted generation.
func (s *Session) Generation() uint64 {
	return s.generation.Load()
}

// Events returns the notification channel.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Wait blocks until every submitted generation has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close waits for in-flight generations, releases the current result and
// closes the events channel. The session must not be used afterwards.
func (s *Session) Close() {
	s.wg.Wait()
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()
	if cur != nil {
		s.release(cur)
	}
	close(s.events)
}
