package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/syssam/polystore"
)

// Fetch strategies, used as the "strategy" label of the fetch counter.
const (
	StrategyFind           = "find"
	StrategyFinder         = "finder"
	StrategySecondaryIndex = "secondary_index"
	StrategySharedKey      = "shared_key"
	StrategySearchIndex    = "search_index"
	StrategyJoinTable      = "join_table"
)

// Metrics holds Prometheus metrics for the resolver. A nil *Metrics
// records nothing.
type Metrics struct {
	traversals  prometheus.Counter
	duration    prometheus.Histogram
	fetches     *prometheus.CounterVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	links       *prometheus.CounterVec
	errors      *prometheus.CounterVec
}

// NewMetrics creates the resolver metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		traversals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "traversals_total",
			Help:      "Total number of graph traversals",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "traversal_duration_seconds",
			Help:      "Duration of graph traversals",
			Buckets:   prometheus.DefBuckets,
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "fetches_total",
			Help:      "Relationship fetches by strategy",
		}, []string{"strategy"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "cache_hits_total",
			Help:      "Relationship values served from the traversal cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "cache_misses_total",
			Help:      "Relationship values not found in the traversal cache",
		}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "links_total",
			Help:      "Back-references written, by inverse multiplicity",
		}, []string{"multiplicity"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polystore",
			Subsystem: "resolver",
			Name:      "errors_total",
			Help:      "Failed traversals by error kind",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.traversals, m.duration, m.fetches, m.cacheHits, m.cacheMisses, m.links, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordTraversal(start time.Time, err error) {
	if m == nil {
		return
	}
	m.traversals.Inc()
	m.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(polystore.ResolutionKind(err).String()).Inc()
	}
}

func (m *Metrics) recordFetch(strategy string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(strategy).Inc()
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) recordLink(multiplicity string) {
	if m == nil {
		return
	}
	m.links.WithLabelValues(multiplicity).Inc()
}
