package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/sessionkit/pkg/cache"
)

// cacheMetrics are exported under <namespace>_cache_*.
// With a nil registerer the collectors still work but are not registered.
type cacheMetrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	loads      prometheus.Counter
	coalesced  prometheus.Counter
	loadErrors prometheus.Counter
	evictions  *prometheus.CounterVec
}

func newCacheMetrics(reg prometheus.Registerer, namespace string) *cacheMetrics {
	factory := promauto.With(reg)
	const subsystem = "cache"

	return &cacheMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hits_total",
			Help:      "Session loads answered from the local cache",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "misses_total",
			Help:      "Session loads that were not in the local cache",
		}),
		loads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backend_loads_total",
			Help:      "Loads issued against the backing store",
		}),
		coalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "coalesced_total",
			Help:      "Loads that shared the result of a concurrent backend load",
		}),
		loadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "load_errors_total",
			Help:      "Backend loads that failed with something other than not found",
		}),
		evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evictions_total",
			Help:      "Entries dropped from the local cache by reason",
		}, []string{"reason"}),
	}
}

func (m *cacheMetrics) evicted(reason cache.EvictReason) {
	if reason == cache.EvictedCapacity || reason == cache.EvictedExpired {
		m.evictions.WithLabelValues(reason.String()).Inc()
	}
}
