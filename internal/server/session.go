package server

import (
	"context"
	"io"
	"sync"

	"github.com/jmylchreest/pagetint/internal/analyzer"
)

const subscriberBuffer = 4

// session is one analyzer plus the watcher feeding its event subscribers.
type session struct {
	url      string
	kind     string
	analyzer *analyzer.Analyzer
	closer   io.Closer

	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	subs map[chan analyzer.Event]struct{}
	last *analyzer.Event
}

func (s *session) ID() string {
	return s.analyzer.ID()
}

// publish fans an event out to subscribers. Slow subscribers miss events
// rather than stall the watcher.
func (s *session) publish(e analyzer.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &e
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// subscribe registers a subscriber. The latest event, if any, is delivered
// first.
func (s *session) subscribe() (<-chan analyzer.Event, func()) {
	ch := make(chan analyzer.Event, subscriberBuffer)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[chan analyzer.Event]struct{})
	}
	s.subs[ch] = struct{}{}
	if s.last != nil {
		ch <- *s.last
	}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// stop cancels the watcher, waits for it and releases the page.
func (s *session) stop() error {
	s.cancel()
	<-s.done
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
