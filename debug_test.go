package opsdiag_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/opsdiag"
)

func graphEngine(t *testing.T) *opsdiag.Engine {
	t.Helper()

	e := newEngine()
	require.NoError(t, opsdiag.ProvideValue(e, &Config{}))
	require.NoError(
		t, opsdiag.Provide(
			e, func(context.Context, opsdiag.Resolver) (*Database, error) { return &Database{}, nil },
			opsdiag.WithDependencies(opsdiag.Key[*Config]()),
		),
	)
	require.NoError(
		t, opsdiag.ProvideWorker(
			e, func(context.Context, opsdiag.Resolver) (*Poller, error) { return &Poller{rec: &recorder{}}, nil },
			opsdiag.WithDependencies(opsdiag.Key[*Database]()),
		),
	)
	return e
}

func TestGraph(t *testing.T) {
	t.Parallel()

	info := graphEngine(t).Graph()
	require.Len(t, info.Services, 3)

	byName := make(map[string]opsdiag.ServiceInfo)
	for _, svc := range info.Services {
		byName[svc.Name] = svc
	}

	db := byName["*opsdiag_test.Database"]
	assert.Equal(t, []string{"*opsdiag_test.Config"}, db.Dependencies)
	assert.Equal(t, []string{"*opsdiag_test.Poller"}, db.Dependents)
	assert.Equal(t, opsdiag.Singleton, db.Lifetime)

	assert.True(t, byName["*opsdiag_test.Poller"].Hosted)
	assert.False(t, byName["*opsdiag_test.Config"].Hosted)
}

func TestSprintGraph(t *testing.T) {
	t.Parallel()

	out := graphEngine(t).SprintGraph()
	assert.Contains(t, out, "○ *opsdiag_test.Config (singleton)")
	assert.Contains(t, out, "○ *opsdiag_test.Database (singleton) ← *opsdiag_test.Config")
	assert.Contains(t, out, "● *opsdiag_test.Poller (singleton) ← *opsdiag_test.Database")

	assert.Equal(t, "(empty engine)\n", newEngine().SprintGraph())
}

func TestSprintGraphDOT(t *testing.T) {
	t.Parallel()

	out := graphEngine(t).SprintGraphDOT()
	assert.Contains(t, out, "digraph dependencies {")
	assert.Contains(t, out, `"*opsdiag_test.Database" -> "*opsdiag_test.Config";`)
	assert.Contains(t, out, `[label="opsdiag_test.Poller", style=filled, fillcolor=lightblue]`)
}
