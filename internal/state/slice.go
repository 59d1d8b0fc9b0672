// Package state implements the slice pattern: a typed state record per
// business entity, moved through pending, fulfilled and rejected phases by
// asynchronous operations.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// OpKind decides what a failed operation does to the slice data.
type OpKind int

const (
	// Fetch operations reset their data to empty on failure.
	Fetch OpKind = iota
	// Mutate operations leave existing data untouched on failure.
	Mutate
)

// Policy decides which response wins when operations on one slice overlap.
type Policy int

const (
	// LastWriteWins applies every response in completion order.
	LastWriteWins Policy = iota
	// DiscardStale applies a response only if no newer operation was
	// started on the slice after it.
	DiscardStale
)

func (p Policy) String() string {
	if p == DiscardStale {
		return "discard-stale"
	}
	return "last-write-wins"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "last-write-wins":
		return LastWriteWins, nil
	case "discard-stale":
		return DiscardStale, nil
	}
	return LastWriteWins, fmt.Errorf("state: unknown policy %q", s)
}

type options struct {
	policy Policy
	logger *slog.Logger
}

type Option func(*options)

func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// State is a snapshot of a slice. Data is shared with the slice and must be
// treated as read-only.
type State[T any] struct {
	Data      T        `json:"data"`
	IsLoading bool     `json:"isLoading"`
	Error     *Failure `json:"error"`
}

type Slice[T any] struct {
	name   string
	policy Policy
	logger *slog.Logger

	mu       sync.Mutex
	state    State[T]
	inflight int
	seq      uint64
	subs     map[uint64]func(State[T])
	nextSub  uint64
}

func New[T any](name string, initial T, opts ...Option) *Slice[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Slice[T]{
		name:   name,
		policy: o.policy,
		logger: o.logger,
		state:  State[T]{Data: initial},
		subs:   make(map[uint64]func(State[T])),
	}
}

func (s *Slice[T]) Name() string { return s.name }

func (s *Slice[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called with every new state. The returned
// function removes the subscription.
func (s *Slice[T]) Subscribe(fn func(State[T])) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Update applies a synchronous reducer.
func (s *Slice[T]) Update(fn func(*State[T])) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Slice[T]) ClearError() {
	s.Update(func(st *State[T]) { st.Error = nil })
}

func (s *Slice[T]) notify(snap State[T]) {
	s.mu.Lock()
	subs := make([]func(State[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Op is one asynchronous operation on a slice of T producing R.
type Op[T, R any] struct {
	Name string
	Kind OpKind
	// Fallback is stored when the failure carries no server message.
	Fallback string
	Call     func(ctx context.Context) (R, error)

	// Pending runs after IsLoading/Error are set, before Call.
	Pending func(*State[T])
	// Fulfilled copies the result into the state.
	Fulfilled func(*State[T], R)
	// Clear empties the data a Fetch op owns. Defaults to zeroing Data.
	Clear func(*State[T])
	// Rejected runs after the standard failure handling.
	Rejected func(*State[T], *Failure)
}

// Run executes op against s. The pending phase is applied before Call is
// invoked. The returned error, if any, is the *Failure stored in the slice.
func Run[T, R any](ctx context.Context, s *Slice[T], op Op[T, R]) (R, error) {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.inflight++
	s.state.IsLoading = true
	s.state.Error = nil
	if op.Pending != nil {
		op.Pending(&s.state)
	}
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)
	s.logger.Debug("slice op pending", "slice", s.name, "op", op.Name, "request", id)

	res, err := op.Call(ctx)

	var failure *Failure
	if err != nil {
		failure = FailureFrom(err, op.Fallback)
	}

	s.mu.Lock()
	s.inflight--
	stale := s.policy == DiscardStale && id != s.seq
	if !stale {
		if failure == nil {
			s.state.Error = nil
			if op.Fulfilled != nil {
				op.Fulfilled(&s.state, res)
			}
		} else {
			s.state.Error = failure
			if op.Kind == Fetch {
				if op.Clear != nil {
					op.Clear(&s.state)
				} else {
					var zero T
					s.state.Data = zero
				}
			}
			if op.Rejected != nil {
				op.Rejected(&s.state, failure)
			}
		}
	}
	s.state.IsLoading = s.inflight > 0
	snap = s.state
	s.mu.Unlock()
	s.notify(snap)

	switch {
	case stale:
		s.logger.Debug("slice op discarded stale response", "slice", s.name, "op", op.Name, "request", id)
	case failure != nil:
		s.logger.Warn("slice op rejected", "slice", s.name, "op", op.Name, "kind", failure.Kind, "error", failure.Message)
	default:
		s.logger.Debug("slice op fulfilled", "slice", s.name, "op", op.Name, "request", id)
	}

	if failure != nil {
		var zero R
		return zero, failure
	}
	return res, nil
}
