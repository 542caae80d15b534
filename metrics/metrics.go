package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/rediwo/redi-eager/include"
)

const (
	namespace = "redi_eager"
	subsystem = "include"
)

// Collector records include resolver events as prometheus metrics. It
// implements include.Observer.
type Collector struct {
	batches      *prometheus.CounterVec
	keysPerBatch prometheus.Histogram
	queries      *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	saved        prometheus.Counter
	skipped      *prometheus.CounterVec
}

var _ include.Observer = (*Collector)(nil)

// NewCollector registers the include metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batches_planned_total",
			Help:      "number of batched relation lookups planned",
		}, []string{"kind", "point"}),
		keysPerBatch: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "keys_per_batch",
			Buckets:   []float64{0, 1, 3, 10, 32, 100, 316, 1000, 3162, 10000},
			Help:      "distinct keys in one planned lookup",
		}),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queries_total",
			Help:      "backend queries issued by the include resolver",
		}, []string{"model", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_duration_seconds",
			Buckets:   []float64{.0005, .001, .002, .005, .01, .02, .05, .1, .2, .5},
			Help:      "latency of include resolver backend queries",
		}, []string{"model"}),
		saved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queries_saved_total",
			Help:      "queries avoided compared to one query per parent",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relations_skipped_total",
			Help:      "requested relations silently skipped",
		}, []string{"reason"}),
	}
}

// BatchPlanned counts a planned batch and its key count
func (c *Collector) BatchPlanned(info include.PlanInfo) {
	c.batches.WithLabelValues(string(info.Kind), strconv.FormatBool(info.Point)).Inc()
	c.keysPerBatch.Observe(float64(info.Keys))
	if saved := info.Parents - info.Pages; saved > 0 {
		c.saved.Add(float64(saved))
	}
}

// QueryIssued records a target query and its latency
func (c *Collector) QueryIssued(model string, keys int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.queries.WithLabelValues(model, outcome).Inc()
	c.latency.WithLabelValues(model).Observe(duration.Seconds())
}

// RelationSkipped counts a relation skipped at resolve time
func (c *Collector) RelationSkipped(model, relation, reason string) {
	c.skipped.WithLabelValues(reason).Inc()
}

// WriteText writes every metric family of g in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
