package opsdiag_test

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/opsdiag"
)

var payloadType = reflect.TypeOf(0)

func constShape(family, name string, value any, err error) opsdiag.Shape {
	return opsdiag.Shape{
		Family:  family,
		Name:    name,
		Payload: payloadType,
		Bind: func(context.Context) (any, error) {
			return value, err
		},
	}
}

func TestOptionsReport_Configured(t *testing.T) {
	t.Parallel()

	store := storeWith(map[string]any{"database.host": "db.local", "database.port": 5432, "cache.size": 64})
	e := newEngine(opsdiag.WithConfigStore(store))
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))
	require.NoError(t, opsdiag.Configure[CacheOptions](e, "cache"))

	report := e.OptionsReport(context.Background())
	assert.False(t, report.HasErrors)
	require.Len(t, report.Scopes, 3)

	for i, scope := range []string{"Monitor", "Options", "Snapshot"} {
		got := report.Scopes[i]
		assert.Equal(t, scope, got.Scope)
		assert.False(t, got.HasErrors)
		require.Len(t, got.Results, 2)
		assert.Equal(t, "opsdiag_test.CacheOptions", got.Results[0].ShapeName)
		assert.Equal(t, CacheOptions{Size: 64}, got.Results[0].Value)
		assert.Equal(t, "opsdiag_test.DatabaseOptions", got.Results[1].ShapeName)
		assert.Equal(t, DatabaseOptions{Host: "db.local", Port: 5432}, got.Results[1].Value)
	}
}

func TestOptionsReport_InvalidFirst(t *testing.T) {
	t.Parallel()

	store := storeWith(map[string]any{"cache.size": 64})
	e := newEngine(opsdiag.WithConfigStore(store))
	require.NoError(t, opsdiag.Configure[CacheOptions](e, "cache"))
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))

	report := e.OptionsReport(context.Background())
	assert.True(t, report.HasErrors)

	for _, scope := range report.Scopes {
		assert.True(t, scope.HasErrors)
		require.Len(t, scope.Results, 2)

		first := scope.Results[0]
		assert.Equal(t, "opsdiag_test.DatabaseOptions", first.ShapeName)
		assert.False(t, first.IsValid)
		assert.Nil(t, first.Value)
		assert.Contains(t, first.Error, "host is required")

		assert.True(t, scope.Results[1].IsValid)
	}
}

func TestOptionsReport_FailureIsolation(t *testing.T) {
	t.Parallel()

	src := shapeList{
		constShape("opsdiag.Options[a.A]", "a.A", 1, nil),
		constShape("opsdiag.Options[b.B]", "b.B", 2, nil),
		{
			Family:  "opsdiag.Options[c.C]",
			Name:    "c.C",
			Payload: payloadType,
			Bind:    func(context.Context) (any, error) { panic("bind exploded") },
		},
		constShape("opsdiag.Options[d.D]", "d.D", 4, nil),
		constShape("opsdiag.Options[e.E]", "e.E", nil, errors.New("bad value")),
	}

	report := opsdiag.BuildOptionsReport(context.Background(), src, opsdiag.NewProber(quietLogger(), nil))
	require.Len(t, report.Scopes, 1)

	results := report.Scopes[0].Results
	require.Len(t, results, 5)
	assert.Equal(t, "c.C", results[0].ShapeName)
	assert.Contains(t, results[0].Error, "bind exploded")
	assert.Equal(t, "e.E", results[1].ShapeName)
	assert.Equal(t, "bad value", results[1].Error)

	for _, r := range results[2:] {
		assert.True(t, r.IsValid, r.ShapeName)
		assert.Empty(t, r.Error)
	}
}

func TestOptionsReport_OpenShapesDropped(t *testing.T) {
	t.Parallel()

	src := shapeList{
		{Family: "opsdiag.Options[T]", Name: "T"},
		constShape("opsdiag.Options[a.A]", "a.A", 1, nil),
		{Family: "opsdiag.Pending[T]", Name: "T", Payload: payloadType},
	}

	report := opsdiag.BuildOptionsReport(context.Background(), src, nil)
	assert.False(t, report.HasErrors)
	require.Len(t, report.Scopes, 2)

	assert.Equal(t, "Options", report.Scopes[0].Scope)
	require.Len(t, report.Scopes[0].Results, 1)
	assert.Equal(t, "a.A", report.Scopes[0].Results[0].ShapeName)

	assert.Equal(t, "Pending", report.Scopes[1].Scope)
	assert.Empty(t, report.Scopes[1].Results)
	assert.False(t, report.Scopes[1].HasErrors)
}

func TestOptionsReport_DuplicateShapesProbedOnce(t *testing.T) {
	t.Parallel()

	var binds atomic.Int32
	shape := opsdiag.Shape{
		Family:  "opsdiag.Options[a.A]",
		Name:    "a.A",
		Payload: payloadType,
		Bind: func(context.Context) (any, error) {
			binds.Add(1)
			return 1, nil
		},
	}

	report := opsdiag.BuildOptionsReport(context.Background(), shapeList{shape, shape}, nil)
	require.Len(t, report.Scopes, 1)
	assert.Len(t, report.Scopes[0].Results, 1)
	assert.Equal(t, int32(1), binds.Load())
}

func TestOptionsReport_Empty(t *testing.T) {
	t.Parallel()

	report := opsdiag.BuildOptionsReport(context.Background(), nil, nil)
	assert.False(t, report.HasErrors)
	assert.Empty(t, report.Scopes)

	report = newEngine().OptionsReport(context.Background())
	assert.False(t, report.HasErrors)
	assert.Empty(t, report.Scopes)
}

func TestOptionsReport_Idempotent(t *testing.T) {
	t.Parallel()

	store := storeWith(map[string]any{"cache.size": 8})
	e := newEngine(opsdiag.WithConfigStore(store))
	require.NoError(t, opsdiag.Configure[CacheOptions](e, "cache"))
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))

	ctx := context.Background()
	assert.Equal(t, e.OptionsReport(ctx), e.OptionsReport(ctx))
}
