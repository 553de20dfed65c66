package store

import (
	"context"
	"sync"
)

// State is implemented by state trees a Store can hold.
// Clone must return a copy that shares no mutable memory with the receiver.
type State[T any] interface {
	Clone() T
}

// Listener is called after every mutation with the previous and the current
// state. Both values are private copies.
type Listener[T any] func(prev, cur T)

// Committer runs inside every mutation after the new state is in place.
// A non-nil error is returned from the mutation call; the new state stays.
type Committer[T any] func(ctx context.Context, state T) error

type subscription[T any] struct {
	id       uint64
	listener Listener[T]
}

// Store holds a named state tree of type T.
//
// Mutations are serialized: a mutation, its committer and its listeners run
// to completion before the next mutation starts. Listeners and committers may
// read the store but must not mutate it.
type Store[T State[T]] struct {
	name    string
	factory func() T

	// writeMu serializes mutations through commit and notification.
	writeMu sync.Mutex

	// mu guards the fields below and is never held while user code runs.
	mu        sync.RWMutex
	state     T
	revision  uint64
	committer Committer[T]

	// subsMu guards subs separately so listeners may subscribe or
	// unsubscribe while a mutation holds mu.
	subsMu    sync.Mutex
	subs      []subscription[T]
	nextSubID uint64
}

// New creates a store whose initial state is produced by factory.
// The factory result is cloned, so a factory that returns shared data cannot
// leak it into the store.
func New[T State[T]](name string, factory func() T) *Store[T] {
	return &Store[T]{
		name:    name,
		factory: factory,
		state:   factory().Clone(),
	}
}

// Name returns the store name.
func (s *Store[T]) Name() string {
	return s.name
}

// State returns a deep copy of the current state.
func (s *Store[T]) State() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Revision returns the number of mutations applied so far.
func (s *Store[T]) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribe registers listener for every later mutation.
// The returned function removes it again.
func (s *Store[T]) Subscribe(listener Listener[T]) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription[T]{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// SetCommitter installs the store's committer.
// Returns ErrCommitterSet if one is already installed.
func (s *Store[T]) SetCommitter(c Committer[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committer != nil {
		return ErrCommitterSet
	}
	s.committer = c
	return nil
}

// ClearCommitter removes the store's committer, if any.
func (s *Store[T]) ClearCommitter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committer = nil
}

// Mutate applies fn to a copy of the current state and installs the result
// as one mutation.
func (s *Store[T]) Mutate(ctx context.Context, fn func(state *T)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.State()
	fn(&next)
	return s.apply(ctx, next)
}

// Update applies fn to a copy of the current state. If fn returns an error
// the copy is dropped and nothing is committed or announced; otherwise the
// copy is installed as one mutation.
func (s *Store[T]) Update(ctx context.Context, fn func(state *T) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.State()
	if err := fn(&next); err != nil {
		return err
	}
	return s.apply(ctx, next)
}

// Replace swaps the whole state tree for a copy of state as one mutation.
func (s *Store[T]) Replace(ctx context.Context, state T) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.apply(ctx, state.Clone())
}

// Reset replaces the state with a fresh factory result as one mutation.
func (s *Store[T]) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.apply(ctx, s.factory().Clone())
}

// apply installs next, commits it and notifies listeners. Callers hold
// s.writeMu and must pass a tree nobody else references.
func (s *Store[T]) apply(ctx context.Context, next T) error {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.revision++
	committer := s.committer
	s.mu.Unlock()

	var err error
	if committer != nil {
		err = committer(ctx, next.Clone())
	}

	s.subsMu.Lock()
	subs := s.subs
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.listener(prev.Clone(), next.Clone())
	}
	return err
}
