package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3studio/baseline-manager/internal/adapters/memory"
	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/internal/domain/domaintest"
	"github.com/s3studio/baseline-manager/pkg/persist"
	"github.com/s3studio/baseline-manager/pkg/store"
)

// fakePlugin records calls and can fail or block.
type fakePlugin struct {
	name    string
	initErr error
	block   chan struct{}

	mu       sync.Mutex
	cfg      PluginConfig
	calls    *[]string
	shutdown bool
}

func (p *fakePlugin) Name() string { return p.name }

func (p *fakePlugin) Initialize(ctx context.Context, cfg PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	*p.calls = append(*p.calls, "init:"+p.name)
	return p.initErr
}

func (p *fakePlugin) Shutdown(ctx context.Context) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	*p.calls = append(*p.calls, "shutdown:"+p.name)
	return nil
}

func putSnapshot(t *testing.T, s persist.Storage, key, storeName string, state any) {
	t.Helper()
	data, err := persist.Encode(storeName, state)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), key, data))
}

func TestNew_ColdStart(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotMap()

	m, err := New(ctx, storage)
	require.NoError(t, err)
	defer m.Close()

	keys, _ := storage.Keys(ctx)
	assert.Equal(t, []string{domain.ConfStorageKey, domain.UIStorageKey}, keys)
	assert.Equal(t, map[string]uint64{domain.ConfStorageKey: 1, domain.UIStorageKey: 1}, m.Writes())
	assert.Equal(t, domain.DefaultConf(), m.Conf().State())
	assert.Equal(t, domain.DefaultUI(), m.UI().State())
	assert.Equal(t, []string{domain.ConfStoreName, domain.UIStoreName}, m.Registry().Names())
	assert.Equal(t, StateStopped, m.State())
}

func TestNew_Rehydrates(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotMap()
	putSnapshot(t, storage, domain.ConfStorageKey, domain.ConfStoreName, domaintest.SampleConf())
	putSnapshot(t, storage, domain.UIStorageKey, domain.UIStoreName, domain.UIState{ThemeName: "light", ExportAll: true})

	m, err := New(ctx, storage)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, domaintest.SampleConf(), m.Conf().State())
	assert.Equal(t, "light", m.UI().State().ThemeName)
}

func TestNew_MalformedSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotMap()
	require.NoError(t, storage.Write(ctx, domain.UIStorageKey, []byte(`{"themeName":""}`)))

	_, err := New(ctx, storage)
	assert.ErrorIs(t, err, persist.ErrMalformedSnapshot)

	m, err := New(ctx, storage, WithDiscardInvalid(true))
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, domain.DefaultUI(), m.UI().State())
}

func TestNew_SharedRegistryCannotBindTwice(t *testing.T) {
	ctx := context.Background()
	reg := store.NewRegistry()

	m, err := New(ctx, memory.NewSlotMap(), WithRegistry(reg))
	require.NoError(t, err)

	_, err = New(ctx, memory.NewSlotMap(), WithRegistry(reg))
	assert.ErrorIs(t, err, store.ErrCommitterSet)

	require.NoError(t, m.Close())
	other, err := New(ctx, memory.NewSlotMap(), WithRegistry(reg))
	require.NoError(t, err, "closing releases the stores")
	assert.Same(t, m.Conf(), other.Conf())
	_ = other.Close()
}

func TestManager_OutputFormatSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotMap()

	m, err := New(ctx, storage)
	require.NoError(t, err)
	require.Equal(t, domain.OutputFormatCSV, m.Conf().State().Option.OutputFormat)
	require.NoError(t, m.Editor().SetOption(ctx, "output_format", "json"))
	require.NoError(t, m.Close())

	next, err := New(ctx, storage)
	require.NoError(t, err)
	defer next.Close()
	assert.Equal(t, domain.OutputFormatJSON, next.Conf().State().Option.OutputFormat)
}

func TestManager_Rehydrate(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotMap()
	m, err := New(ctx, storage)
	require.NoError(t, err)

	changed, err := m.Rehydrate(ctx, domain.UIStorageKey)
	require.NoError(t, err)
	assert.False(t, changed)

	putSnapshot(t, storage, domain.UIStorageKey, domain.UIStoreName, domain.UIState{ThemeName: "light"})
	changed, err = m.Rehydrate(ctx, domain.UIStorageKey)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "light", m.UI().State().ThemeName)

	_, err = m.Rehydrate(ctx, "other-store")
	assert.ErrorIs(t, err, ErrUnknownKey)

	require.NoError(t, m.Close())
	_, err = m.Rehydrate(ctx, domain.UIStorageKey)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_Close_DetachesStores(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotMap()
	m, err := New(ctx, storage)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	require.NoError(t, m.Editor().SetUI(ctx, "themeName", "light"))

	data, _, _ := storage.Read(ctx, domain.UIStorageKey)
	got, err := persist.Decode[domain.UIState](domain.UIStoreName, data, nil)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.ThemeName)
	assert.ErrorIs(t, m.Start(ctx), ErrClosed)
}

func TestManager_StartStop(t *testing.T) {
	ctx := context.Background()
	var calls []string
	a := &fakePlugin{name: "a", calls: &calls}
	b := &fakePlugin{name: "b", calls: &calls}

	rec := &transitionRecorder{}

	m, err := New(ctx, memory.NewSlotMap(), WithPlugin(a), WithPlugin(b), WithStorageDir("/slots"),
		WithStateHandler(rec.handle))
	require.NoError(t, err)
	defer m.Close()

	assert.ErrorIs(t, m.Stop(ctx), ErrNotRunning)

	require.NoError(t, m.Start(ctx))
	assert.Equal(t, StateRunning, m.State())
	assert.ErrorIs(t, m.Start(ctx), ErrAlreadyRunning)

	assert.Equal(t, "/slots", a.cfg.StorageDir)
	assert.Equal(t, []string{domain.ConfStorageKey, domain.UIStorageKey}, a.cfg.Keys)
	require.NotNil(t, a.cfg.Rehydrate)
	_, err = a.cfg.Rehydrate(ctx, domain.ConfStorageKey)
	assert.NoError(t, err)

	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, []string{"init:a", "init:b", "shutdown:b", "shutdown:a"}, calls)

	var reasons []Reason
	for _, tr := range rec.transitions() {
		reasons = append(reasons, tr.Reason)
	}
	assert.Equal(t, []Reason{ReasonStartRequested, ReasonPluginsReady, ReasonStopRequested, ReasonPluginsStopped}, reasons)

	calls = nil
	require.NoError(t, m.Start(ctx), "manager can restart")
	require.NoError(t, m.Stop(ctx))
}

func TestManager_StartPluginFailure(t *testing.T) {
	ctx := context.Background()
	var calls []string
	a := &fakePlugin{name: "a", calls: &calls}
	boom := errors.New("boom")
	b := &fakePlugin{name: "b", calls: &calls, initErr: boom}
	rec := &transitionRecorder{}

	m, err := New(ctx, memory.NewSlotMap(), WithPlugin(a), WithPlugin(b), WithStateHandler(rec.handle))
	require.NoError(t, err)
	defer m.Close()

	err = m.Start(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateCrashed, m.State())
	assert.Equal(t, []string{"init:a", "init:b", "shutdown:a"}, calls)

	got := rec.transitions()
	require.Len(t, got, 2)
	crash := got[1]
	assert.Equal(t, StateStarting, crash.From)
	assert.Equal(t, StateCrashed, crash.To)
	assert.Equal(t, ReasonPluginFailed, crash.Reason)
	assert.Equal(t, "b", crash.Plugin)
	assert.ErrorIs(t, crash.Err, boom)

	b.initErr = nil
	require.NoError(t, m.Start(ctx), "crashed manager can start again")
}

func TestManager_StopTimeout(t *testing.T) {
	ctx := context.Background()
	var calls []string
	release := make(chan struct{})
	slow := &fakePlugin{name: "slow", calls: &calls, block: release}

	m, err := New(ctx, memory.NewSlotMap(), WithPlugin(slow), WithShutdownTimeout(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, m.Start(ctx))
	err = m.Stop(ctx)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.Equal(t, StateCrashed, m.State())

	close(release)
	require.NoError(t, m.Close())
}
