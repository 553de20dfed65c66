package persist

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/store"
)

// Binding keeps one store synchronized with one storage key.
type Binding[T store.State[T]] struct {
	store   *store.Store[T]
	storage Storage
	key     string
	opts    options

	mu          sync.Mutex
	lastWritten []byte
	writes      uint64
}

// Bind couples s to key in storage.
//
// It installs the binding as the store's committer, then reads key. An empty
// slot gets the store's current (default) state written to it. A stored
// snapshot is decoded, migrated, validated and replaces the store state; that
// replace writes the snapshot back.
//
// Bind fails with ErrStorageUnavailable when the slot cannot be read or
// written, and with ErrMalformedSnapshot or ErrUnsupportedVersion when the
// stored data is unusable, unless WithDiscardInvalid is set. On failure the
// store is left unbound.
func Bind[T store.State[T]](ctx context.Context, s *store.Store[T], storage Storage, key string, opts ...Option) (*Binding[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &Binding[T]{
		store:   s,
		storage: storage,
		key:     key,
		opts:    o,
	}
	if err := s.SetCommitter(b.commit); err != nil {
		return nil, fmt.Errorf("bind %q: %w", key, err)
	}

	if err := b.rehydrateOnBind(ctx); err != nil {
		s.ClearCommitter()
		return nil, err
	}
	return b, nil
}

func (b *Binding[T]) rehydrateOnBind(ctx context.Context) error {
	logger := b.opts.logger

	data, ok, err := b.storage.Read(ctx, b.key)
	if err != nil {
		return fmt.Errorf("%w: read %q: %w", ErrStorageUnavailable, b.key, err)
	}

	if !ok {
		logger.Info("no snapshot stored, writing defaults", log.Store(b.store.Name()), log.Key(b.key))
		return b.store.Replace(ctx, b.store.State())
	}

	state, err := b.decode(data)
	if err != nil {
		if !b.opts.discardInvalid {
			return fmt.Errorf("rehydrate %q: %w", b.key, err)
		}
		logger.Warn("discarding unusable snapshot",
			log.Store(b.store.Name()),
			log.Key(b.key),
			log.Err(err),
		)
		return b.store.Replace(ctx, b.store.State())
	}

	if err := b.store.Replace(ctx, state); err != nil {
		return err
	}
	logger.Info("store rehydrated", log.Store(b.store.Name()), log.Key(b.key), log.Int("bytes", len(data)))
	return nil
}

// Rehydrate re-reads the slot and replaces the store state if the slot holds
// something other than the binding's own last write. It reports whether the
// state was replaced. A malformed snapshot leaves the store untouched.
func (b *Binding[T]) Rehydrate(ctx context.Context) (bool, error) {
	data, ok, err := b.storage.Read(ctx, b.key)
	if err != nil {
		return false, fmt.Errorf("%w: read %q: %w", ErrStorageUnavailable, b.key, err)
	}
	if !ok {
		return false, nil
	}

	b.mu.Lock()
	own := bytes.Equal(data, b.lastWritten)
	b.mu.Unlock()
	if own {
		return false, nil
	}

	state, err := b.decode(data)
	if err != nil {
		return false, fmt.Errorf("rehydrate %q: %w", b.key, err)
	}
	if err := b.store.Replace(ctx, state); err != nil {
		return true, err
	}

	b.opts.logger.Info("store rehydrated from external change", log.Store(b.store.Name()), log.Key(b.key))
	return true, nil
}

// commit is the store committer: one full snapshot write per mutation.
func (b *Binding[T]) commit(ctx context.Context, state T) error {
	data, err := Encode(b.store.Name(), state)
	if err != nil {
		return fmt.Errorf("encode %q: %w", b.key, err)
	}

	if err := b.storage.Write(ctx, b.key, data); err != nil {
		b.opts.logger.Error("snapshot write failed", log.Store(b.store.Name()), log.Key(b.key), log.Err(err))
		return fmt.Errorf("%w: write %q: %w", ErrStorageUnavailable, b.key, err)
	}

	b.mu.Lock()
	b.lastWritten = data
	b.writes++
	writes := b.writes
	b.mu.Unlock()

	b.opts.logger.Debug("snapshot written",
		log.Store(b.store.Name()),
		log.Key(b.key),
		log.Int("bytes", len(data)),
		log.Uint64("writes", writes),
	)
	return nil
}

func (b *Binding[T]) decode(data []byte) (T, error) {
	state, err := Decode[T](b.store.Name(), data, b.opts.migrate)
	if err != nil {
		return state, err
	}
	if b.opts.validate != nil {
		if err := b.opts.validate(state); err != nil {
			var zero T
			return zero, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
		}
	}
	return state, nil
}

// Key returns the storage key.
func (b *Binding[T]) Key() string {
	return b.key
}

// Store returns the bound store.
func (b *Binding[T]) Store() *store.Store[T] {
	return b.store
}

// Writes returns the number of snapshots written by this binding.
func (b *Binding[T]) Writes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// LastSnapshot returns a copy of the last snapshot this binding wrote.
func (b *Binding[T]) LastSnapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.lastWritten)
}

// Close detaches the binding from its store. Later mutations are no longer
// written.
func (b *Binding[T]) Close() {
	b.store.ClearCommitter()
}
