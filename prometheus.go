package opsdiag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver counts and times probes.
type PrometheusObserver struct {
	probes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opsdiag",
				Name:      "probes_total",
				Help:      "Probes run, by kind and result.",
			},
			[]string{"kind", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "opsdiag",
				Name:      "probe_duration_seconds",
				Help:      "Probe latency.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"kind"},
		),
	}

	for _, c := range []prometheus.Collector{o.probes, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Hook returns the ProbeHook to pass to WithProbeObserver.
func (o *PrometheusObserver) Hook() ProbeHook {
	return func(kind ProbeKind, _ string, valid bool, d time.Duration, _ error) {
		result := "valid"
		if !valid {
			result = "invalid"
		}
		o.probes.WithLabelValues(string(kind), result).Inc()
		o.duration.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
}

// CacheCollector exports the managed caches of a source at scrape time.
type CacheCollector struct {
	src       CacheSource
	keys      *prometheus.Desc
	size      *prometheus.Desc
	limit     *prometheus.Desc
	unmanaged *prometheus.Desc
}

func NewCacheCollector(src CacheSource) *CacheCollector {
	return &CacheCollector{
		src: src,
		keys: prometheus.NewDesc(
			"opsdiag_cache_keys", "Keys held by a managed cache.", []string{"kind"}, nil,
		),
		size: prometheus.NewDesc(
			"opsdiag_cache_size_bytes", "Accounted size of a managed cache.", []string{"kind"}, nil,
		),
		limit: prometheus.NewDesc(
			"opsdiag_cache_size_limit_bytes", "Size limit of a managed cache, 0 when unbounded.", []string{"kind"}, nil,
		),
		unmanaged: prometheus.NewDesc(
			"opsdiag_unmanaged_caches", "Registered caches that cannot report their size.", nil, nil,
		),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.size
	ch <- c.limit
	ch <- c.unmanaged
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := SnapshotCaches(c.src)

	totals := make(map[string]ManagedCache)
	var kinds []string
	for _, m := range snapshot.Managed {
		t, ok := totals[m.Kind]
		if !ok {
			kinds = append(kinds, m.Kind)
			t.Kind = m.Kind
		}
		t.KeyCount += m.KeyCount
		t.SizeBytes += m.SizeBytes
		t.SizeLimitBytes += m.SizeLimitBytes
		totals[m.Kind] = t
	}

	for _, kind := range kinds {
		t := totals[kind]
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(t.KeyCount), kind)
		ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(t.SizeBytes), kind)
		ch <- prometheus.MustNewConstMetric(c.limit, prometheus.GaugeValue, float64(t.SizeLimitBytes), kind)
	}
	ch <- prometheus.MustNewConstMetric(c.unmanaged, prometheus.GaugeValue, float64(len(snapshot.Unmanaged)))
}
