// Package lifecycle models the page events a hosting documentation framework
// fires: the initial document load and every later client-side content swap.
package lifecycle

import (
	"context"
	"sync"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	// DocumentReady fires once per full page load.
	DocumentReady Kind = "document-ready"
	// ContentNavigated fires after each client-side page swap.
	ContentNavigated Kind = "content-navigated"
)

// Handler reacts to an event. Handlers run on their own goroutine.
type Handler func(ctx context.Context)

type subscription struct {
	id      uint64
	kind    Kind
	handler Handler
}

// Source is an event source handlers subscribe to.
type Source struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
	wg     sync.WaitGroup
}

// NewSource returns an empty event source.
func NewSource() *Source {
	return &Source{}
}

// Subscribe registers h for kind and returns a function removing the registration.
func (s *Source) Subscribe(kind Kind, h Handler) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, kind: kind, handler: h})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers kind to every current subscriber without waiting for them.
// The returned channel is closed once all handlers of this publication return.
func (s *Source) Publish(ctx context.Context, kind Kind) <-chan struct{} {
	s.mu.Lock()
	var handlers []Handler
	for _, sub := range s.subs {
		if sub.kind == kind {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	var pub sync.WaitGroup
	pub.Add(len(handlers))
	s.wg.Add(len(handlers))
	for _, h := range handlers {
		go func(h Handler) {
			defer s.wg.Done()
			defer pub.Done()
			h(ctx)
		}(h)
	}
	go func() {
		pub.Wait()
		close(done)
	}()
	return done
}

// Wait blocks until every handler started by any publication has returned.
func (s *Source) Wait() {
	s.wg.Wait()
}
