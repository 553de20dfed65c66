package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotMap(t *testing.T) {
	ctx := context.Background()
	m := NewSlotMap()

	_, ok, err := m.Read(ctx, "conf-store")
	require.NoError(t, err)
	assert.False(t, ok)

	in := []byte(`{"v":1}`)
	require.NoError(t, m.Write(ctx, "conf-store", in))
	in[0] = 'x'

	out, ok, err := m.Read(ctx, "conf-store")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"v":1}`, string(out), "write must copy its input")

	out[0] = 'y'
	again, _, _ := m.Read(ctx, "conf-store")
	assert.Equal(t, `{"v":1}`, string(again), "read must return a copy")

	require.NoError(t, m.Write(ctx, "a", nil))
	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "conf-store"}, keys)

	require.NoError(t, m.Delete(ctx, "a"))
	keys, _ = m.Keys(ctx)
	assert.Equal(t, []string{"conf-store"}, keys)
	assert.NoError(t, m.Close())
}
