package opsdiag_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/opsdiag"
)

func TestConfigure_Options(t *testing.T) {
	t.Parallel()

	store := storeWith(map[string]any{"database.host": "db.local", "database.port": "6543"})
	e := newEngine(opsdiag.WithConfigStore(store))
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))

	opts, err := opsdiag.Invoke[opsdiag.Options[DatabaseOptions]](e)
	require.NoError(t, err)
	assert.Equal(t, DatabaseOptions{Host: "db.local", Port: 6543}, opts.Value())

	ctx := opsdiag.NewScope(context.Background())
	snap := opsdiag.MustInvokeCtx[opsdiag.Snapshot[DatabaseOptions]](ctx, e)
	assert.Equal(t, "db.local", snap.Value().Host)
}

func TestConfigure_BindingFailure(t *testing.T) {
	t.Parallel()

	e := newEngine()
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))

	_, err := opsdiag.Invoke[opsdiag.Options[DatabaseOptions]](e)
	require.Error(t, err)
	assert.ErrorIs(t, err, &opsdiag.Error{Code: opsdiag.ErrCodeBindingFailed})
	assert.Contains(t, err.Error(), "host is required")
}

func TestConfigure_Duplicate(t *testing.T) {
	t.Parallel()

	e := newEngine()
	require.NoError(t, opsdiag.Configure[CacheOptions](e, "cache"))
	assert.True(t, opsdiag.IsDuplicateService(opsdiag.Configure[CacheOptions](e, "other")))
}

func TestConfigure_SnapshotPerScope(t *testing.T) {
	t.Parallel()

	store := storeWith(map[string]any{"cache.size": 1})
	e := newEngine(opsdiag.WithConfigStore(store))
	require.NoError(t, opsdiag.Configure[CacheOptions](e, "cache"))

	first := opsdiag.NewScope(context.Background())
	assert.Equal(t, 1, opsdiag.MustInvokeCtx[opsdiag.Snapshot[CacheOptions]](first, e).Value().Size)

	store.Set("cache.size", 2)
	assert.Equal(t, 1, opsdiag.MustInvokeCtx[opsdiag.Snapshot[CacheOptions]](first, e).Value().Size)

	second := opsdiag.NewScope(context.Background())
	assert.Equal(t, 2, opsdiag.MustInvokeCtx[opsdiag.Snapshot[CacheOptions]](second, e).Value().Size)

	assert.Equal(t, 2, opsdiag.MustInvoke[opsdiag.Options[CacheOptions]](e).Value().Size)
	store.Set("cache.size", 3)
	assert.Equal(t, 2, opsdiag.MustInvoke[opsdiag.Options[CacheOptions]](e).Value().Size)
}

func TestConfigure_MonitorReloads(t *testing.T) {
	t.Parallel()

	store := storeWith(map[string]any{"database.host": "a"})
	e := newEngine(opsdiag.WithConfigStore(store))
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))

	m := opsdiag.MustInvoke[*opsdiag.Monitor[DatabaseOptions]](e)
	assert.Equal(t, "a", m.Value().Host)
	assert.NoError(t, m.Err())

	store.Set("database.host", "b")
	assert.Equal(t, "b", m.Value().Host)

	store.Set("database.host", "")
	assert.Equal(t, "b", m.Value().Host)
	assert.Error(t, m.Err())

	store.Set("database.host", "c")
	assert.Equal(t, "c", m.Value().Host)
	assert.NoError(t, m.Err())
}

func TestConfigure_Shapes(t *testing.T) {
	t.Parallel()

	e := newEngine()
	require.NoError(t, opsdiag.Configure[CacheOptions](e, "cache"))

	shapes := opsdiag.EnumerateOptionShapes(e)
	require.Len(t, shapes, 3)

	families := make([]string, 0, len(shapes))
	for _, s := range shapes {
		families = append(families, s.Family)
		assert.Equal(t, "opsdiag_test.CacheOptions", s.Name)
		assert.False(t, s.Open())
	}
	assert.Equal(
		t, []string{
			"opsdiag.Options[opsdiag_test.CacheOptions]",
			"opsdiag.Snapshot[opsdiag_test.CacheOptions]",
			"*opsdiag.Monitor[opsdiag_test.CacheOptions]",
		}, families,
	)

	shapes[0].Name = "mutated"
	assert.Equal(t, "opsdiag_test.CacheOptions", opsdiag.EnumerateOptionShapes(e)[0].Name)
}
