package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/internal/domain/domaintest"
)

func TestNew_InitialState(t *testing.T) {
	calls := 0
	s := New("ui", func() domain.UIState {
		calls++
		return domain.DefaultUI()
	})

	assert.Equal(t, 1, calls, "factory should run once")
	assert.Equal(t, "ui", s.Name())
	assert.Equal(t, domain.DefaultUI(), s.State())
	assert.Equal(t, uint64(0), s.Revision())
}

func TestNew_FactoryReturningSharedTemplate(t *testing.T) {
	shared := domain.DefaultConf()
	a := New("conf", func() domain.ConfigurationState { return shared })
	b := New("conf", func() domain.ConfigurationState { return shared })

	require.NoError(t, a.Mutate(context.Background(), func(c *domain.ConfigurationState) {
		c.Profile[domain.ProviderAliyun] = "key"
		c.Option.OutputMetadata = append(c.Option.OutputMetadata, "id")
	}))

	assert.Empty(t, shared.Profile, "template must not see store mutations")
	assert.Empty(t, b.State().Profile, "sibling store must not see mutations")
}

func TestState_ReturnsCopy(t *testing.T) {
	s := New("conf", domain.DefaultConf)

	st := s.State()
	st.Profile[domain.ProviderAzure] = "leak"
	st.Option.OutputFormat = domain.OutputFormatJSON

	assert.Empty(t, s.State().Profile)
	assert.Equal(t, domain.OutputFormatCSV, s.State().Option.OutputFormat)
}

func TestSubscribe_OrderAndArguments(t *testing.T) {
	s := New("ui", domain.DefaultUI)

	var order []string
	s.Subscribe(func(prev, cur domain.UIState) {
		order = append(order, "first:"+prev.ThemeName+"->"+cur.ThemeName)
	})
	s.Subscribe(func(prev, cur domain.UIState) {
		order = append(order, "second:"+prev.ThemeName+"->"+cur.ThemeName)
	})

	require.NoError(t, s.Mutate(context.Background(), func(st *domain.UIState) { st.ThemeName = "light" }))

	assert.Equal(t, []string{"first:dark->light", "second:dark->light"}, order)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := New("ui", domain.DefaultUI)

	calls := 0
	unsubscribe := s.Subscribe(func(prev, cur domain.UIState) { calls++ })

	require.NoError(t, s.Mutate(context.Background(), func(st *domain.UIState) { st.ExportAll = true }))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Mutate(context.Background(), func(st *domain.UIState) { st.ExportAll = false }))

	assert.Equal(t, 1, calls)
}

func TestSubscribe_ListenerMayUnsubscribeItself(t *testing.T) {
	s := New("ui", domain.DefaultUI)

	calls := 0
	var unsubscribe func()
	unsubscribe = s.Subscribe(func(prev, cur domain.UIState) {
		calls++
		unsubscribe()
	})

	require.NoError(t, s.Mutate(context.Background(), func(st *domain.UIState) { st.ExportAll = true }))
	require.NoError(t, s.Mutate(context.Background(), func(st *domain.UIState) { st.ExportAll = false }))

	assert.Equal(t, 1, calls)
}

func TestSubscribe_ListenerCannotReachStore(t *testing.T) {
	s := New("conf", domain.DefaultConf)
	s.Subscribe(func(prev, cur domain.ConfigurationState) {
		cur.Profile[domain.ProviderK8s] = "tampered"
	})

	require.NoError(t, s.Mutate(context.Background(), func(c *domain.ConfigurationState) {
		c.Option.OutputFilename = "report"
	}))

	assert.Empty(t, s.State().Profile)
}

func TestSubscribe_ListenerMayReadStore(t *testing.T) {
	s := New("ui", domain.DefaultUI)
	ctx := context.Background()

	var seen domain.UIState
	var seenRev uint64
	s.Subscribe(func(prev, cur domain.UIState) {
		seen = s.State()
		seenRev = s.Revision()
	})
	require.NoError(t, s.SetCommitter(func(ctx context.Context, st domain.UIState) error {
		assert.Equal(t, st, s.State())
		return nil
	}))

	done := make(chan error, 1)
	go func() {
		done <- s.Mutate(ctx, func(st *domain.UIState) { st.ThemeName = "light" })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("mutation blocked by a listener reading the store")
	}

	assert.Equal(t, "light", seen.ThemeName)
	assert.Equal(t, uint64(1), seenRev)
}

func TestReplace_SingleEvent(t *testing.T) {
	s := New("conf", domain.DefaultConf)

	events := 0
	s.Subscribe(func(prev, cur domain.ConfigurationState) { events++ })

	next := domaintest.SampleConf()
	require.NoError(t, s.Replace(context.Background(), next))

	assert.Equal(t, 1, events)
	assert.Equal(t, next, s.State())
	assert.Equal(t, uint64(1), s.Revision())

	next.Listor[0].RsType = "changed after replace"
	assert.Equal(t, "CVM", s.State().Listor[0].RsType, "replace must copy its argument")
}

func TestReset(t *testing.T) {
	s := New("conf", domain.DefaultConf)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, domaintest.SampleConf()))
	require.NoError(t, s.Reset(ctx))

	assert.Equal(t, domain.DefaultConf(), s.State())
	assert.Equal(t, uint64(2), s.Revision())
}

func TestUpdate(t *testing.T) {
	s := New("ui", domain.DefaultUI)
	ctx := context.Background()

	events := 0
	s.Subscribe(func(prev, cur domain.UIState) { events++ })

	rejected := errors.New("rejected")
	err := s.Update(ctx, func(st *domain.UIState) error {
		st.ThemeName = "half-applied"
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, "dark", s.State().ThemeName)
	assert.Equal(t, uint64(0), s.Revision())
	assert.Zero(t, events)

	require.NoError(t, s.Update(ctx, func(st *domain.UIState) error {
		st.ThemeName = "light"
		return nil
	}))
	assert.Equal(t, "light", s.State().ThemeName)
	assert.Equal(t, 1, events)
}

func TestCommitter(t *testing.T) {
	ctx := context.Background()

	t.Run("RunsOncePerMutationBeforeListeners", func(t *testing.T) {
		s := New("ui", domain.DefaultUI)

		var order []string
		require.NoError(t, s.SetCommitter(func(ctx context.Context, st domain.UIState) error {
			order = append(order, "commit:"+st.ThemeName)
			return nil
		}))
		s.Subscribe(func(prev, cur domain.UIState) { order = append(order, "listen") })

		require.NoError(t, s.Mutate(ctx, func(st *domain.UIState) { st.ThemeName = "light" }))
		require.NoError(t, s.Replace(ctx, domain.DefaultUI()))
		require.NoError(t, s.Reset(ctx))

		assert.Equal(t, []string{
			"commit:light", "listen",
			"commit:dark", "listen",
			"commit:dark", "listen",
		}, order)
	})

	t.Run("ErrorReturnedStateKept", func(t *testing.T) {
		s := New("ui", domain.DefaultUI)
		boom := errors.New("quota exceeded")
		require.NoError(t, s.SetCommitter(func(ctx context.Context, st domain.UIState) error { return boom }))

		notified := false
		s.Subscribe(func(prev, cur domain.UIState) { notified = true })

		err := s.Mutate(ctx, func(st *domain.UIState) { st.ProfileLocked = true })

		assert.ErrorIs(t, err, boom)
		assert.True(t, s.State().ProfileLocked)
		assert.True(t, notified)
	})

	t.Run("OnlyOne", func(t *testing.T) {
		s := New("ui", domain.DefaultUI)
		noop := func(ctx context.Context, st domain.UIState) error { return nil }

		require.NoError(t, s.SetCommitter(noop))
		assert.ErrorIs(t, s.SetCommitter(noop), ErrCommitterSet)

		s.ClearCommitter()
		assert.NoError(t, s.SetCommitter(noop))
	})
}

func TestMutate_Serialized(t *testing.T) {
	s := New("conf", domain.DefaultConf)
	ctx := context.Background()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = s.Mutate(ctx, func(c *domain.ConfigurationState) {
					c.Option.OutputMetadata = append(c.Option.OutputMetadata, "x")
				})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.State().Option.OutputMetadata, workers*perWorker)
	assert.Equal(t, uint64(workers*perWorker), s.Revision())
}

// TestProperty_Isolation checks that no sequence of mutations on one store is
// observable on another store or on the default template.
func TestProperty_Isolation(t *testing.T) {
	before, err := json.Marshal(domain.DefaultConf())
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		a := New("conf", domain.DefaultConf)
		b := New("conf", domain.DefaultConf)
		ctx := context.Background()

		steps := rapid.IntRange(1, 10).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			next := domaintest.Conf().Draw(t, "next")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				_ = a.Replace(ctx, next)
			case 1:
				_ = a.Mutate(ctx, func(c *domain.ConfigurationState) {
					c.Option.OutputMetadata = append(c.Option.OutputMetadata, next.Option.OutputMetadata...)
					if c.Profile == nil {
						c.Profile = domain.Profile{}
					}
					for k, v := range next.Profile {
						c.Profile[k] = v
					}
					c.Listor = append(c.Listor, next.Listor...)
				})
			case 2:
				_ = a.Reset(ctx)
			}
		}

		if !assert.ObjectsAreEqual(domain.DefaultConf(), b.State()) {
			t.Fatalf("sibling store changed: %+v", b.State())
		}
		after, err := json.Marshal(domain.DefaultConf())
		if err != nil {
			t.Fatal(err)
		}
		if string(after) != string(before) {
			t.Fatalf("default template changed: %s", after)
		}
	})
}
