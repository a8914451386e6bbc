package lang

import (
	"github.com/prometheus/client_golang/prometheus"
)

// cacheCollector exports [Cache] statistics as Prometheus metrics.
type cacheCollector struct {
	cache   *Cache
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	entries *prometheus.Desc
}

// Collector returns a [prometheus.Collector] reporting the hit and miss
// counts and the current size of c. Metric names are prefixed with
// namespace, which may be empty.
func (c *Cache) Collector(namespace string) prometheus.Collector {
	name := func(s string) string {
		return prometheus.BuildFQName(namespace, "parse_cache", s)
	}

	return &cacheCollector{
		cache: c,
		hits: prometheus.NewDesc(name("hits_total"),
			"Number of parse cache lookups served from the cache.", nil, nil),
		misses: prometheus.NewDesc(name("misses_total"),
			"Number of parse cache lookups that required a parse.", nil, nil),
		entries: prometheus.NewDesc(name("entries"),
			"Number of trees held by the parse cache.", nil, nil),
	}
}

// Describe implements [prometheus.Collector].
func (cc *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cc.hits
	ch <- cc.misses
	ch <- cc.entries
}

// Collect implements [prometheus.Collector].
func (cc *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	hits, misses := cc.cache.Stats()

	ch <- prometheus.MustNewConstMetric(cc.hits, prometheus.CounterValue, float64(hits))
	ch <- prometheus.MustNewConstMetric(cc.misses, prometheus.CounterValue, float64(misses))
	ch <- prometheus.MustNewConstMetric(cc.entries, prometheus.GaugeValue, float64(cc.cache.Len()))
}
