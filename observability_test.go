package opsdiag_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/opsdiag"
)

func TestObservers_ResolveAndProvide(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var provided, resolved []string
	e := newEngine(
		opsdiag.WithProvideObserver(
			func(key string) {
				mu.Lock()
				defer mu.Unlock()
				provided = append(provided, key)
			},
		),
		opsdiag.WithResolveObserver(
			func(key string, _ time.Duration, err error) {
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					resolved = append(resolved, key)
				}
			},
		),
	)
	require.NoError(t, provideDatabase(e))

	_ = opsdiag.MustInvoke[*Database](e)

	assert.Equal(t, []string{opsdiag.Key[*Config](), opsdiag.Key[*Database]()}, provided)
	assert.Equal(t, []string{opsdiag.Key[*Config](), opsdiag.Key[*Database]()}, resolved)
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestPrometheusObserver(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	obs, err := opsdiag.NewPrometheusObserver(reg)
	require.NoError(t, err)

	_, err = opsdiag.NewPrometheusObserver(reg)
	assert.Error(t, err)

	e := newEngine(opsdiag.WithProbeObserver(obs.Hook()))
	require.NoError(t, opsdiag.Configure[DatabaseOptions](e, "database"))
	require.NoError(t, opsdiag.Provide(e, newRepoProvider(nil)))

	ctx := context.Background()
	e.OptionsReport(ctx)
	e.ServicesReport(ctx)

	families := gather(t, reg)
	probes := families["opsdiag_probes_total"]
	require.NotNil(t, probes)

	counts := make(map[string]float64)
	for _, m := range probes.GetMetric() {
		counts[labelValue(m, "kind")+"/"+labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"shape/invalid": 3, "service/invalid": 4}, counts)

	durations := families["opsdiag_probe_duration_seconds"]
	require.NotNil(t, durations)
	assert.Len(t, durations.GetMetric(), 2)
}

func TestCacheCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	require.NoError(
		t, reg.Register(
			opsdiag.NewCacheCollector(
				cacheList{
					&sizedCache{keys: 5, size: 100, limit: 200},
					&sizedCache{keys: 3, size: 50},
					&opaqueCache{},
				},
			),
		),
	)

	families := gather(t, reg)

	keys := families["opsdiag_cache_keys"]
	require.NotNil(t, keys)
	require.Len(t, keys.GetMetric(), 1)
	assert.Equal(t, "*opsdiag_test.sizedCache", labelValue(keys.GetMetric()[0], "kind"))
	assert.Equal(t, float64(8), keys.GetMetric()[0].GetGauge().GetValue())

	size := families["opsdiag_cache_size_bytes"]
	require.NotNil(t, size)
	assert.Equal(t, float64(150), size.GetMetric()[0].GetGauge().GetValue())

	limit := families["opsdiag_cache_size_limit_bytes"]
	require.NotNil(t, limit)
	assert.Equal(t, float64(200), limit.GetMetric()[0].GetGauge().GetValue())

	unmanaged := families["opsdiag_unmanaged_caches"]
	require.NotNil(t, unmanaged)
	assert.Equal(t, float64(1), unmanaged.GetMetric()[0].GetGauge().GetValue())
}
