package cache

import (
	"context"
	"sync"
)

// Scope memoises calls for the lifetime of one inbound request. The first
// Do for a key runs; later calls for that key in the same scope share its
// result, including an error.
type Scope struct {
	mu    sync.Mutex
	calls map[string]*scopeCall
}

type scopeCall struct {
	once sync.Once
	val  any
	err  error
}

// NewScope creates an empty request scope.
func NewScope() *Scope {
	return &Scope{calls: make(map[string]*scopeCall)}
}

// Do runs fn once per key within s. A nil scope runs fn every time.
func Do[V any](s *Scope, key string, fn func() (V, error)) (V, error) {
	if s == nil {
		return fn()
	}

	s.mu.Lock()
	call, ok := s.calls[key]
	if !ok {
		call = &scopeCall{}
		s.calls[key] = call
	}
	s.mu.Unlock()

	call.once.Do(func() {
		call.val, call.err = fn()
	})

	v, _ := call.val.(V)
	return v, call.err
}

type scopeKey struct{}

// WithScope attaches s to ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope attached to ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}
