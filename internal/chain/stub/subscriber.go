package stub

import (
	"context"
	"errors"
	"sync"

	"farcaster-tv/internal/chain"
)

// LogSubscriber implements chain.LogSubscriber for testing. Logs pushed
// with Emit are delivered to every open subscription.
type LogSubscriber struct {
	mu      sync.Mutex
	subs    []chan chain.LogNotification
	filters []chain.LogsFilter
	closed  bool
}

var _ chain.LogSubscriber = (*LogSubscriber)(nil)

// NewLogSubscriber creates a new stub subscriber.
func NewLogSubscriber() *LogSubscriber {
	return &LogSubscriber{}
}

// SubscribeLogs registers a subscription.
func (s *LogSubscriber) SubscribeLogs(_ context.Context, filter chain.LogsFilter) (<-chan chain.LogNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("client closed")
	}
	ch := make(chan chain.LogNotification, 16)
	s.subs = append(s.subs, ch)
	s.filters = append(s.filters, filter)
	return ch, nil
}

// Filters returns the filters of every subscription made.
func (s *LogSubscriber) Filters() []chain.LogsFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chain.LogsFilter(nil), s.filters...)
}

// Emit delivers a log to every subscription.
func (s *LogSubscriber) Emit(n chain.LogNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		ch <- n
	}
}

// Close closes every subscription channel.
func (s *LogSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	return nil
}
