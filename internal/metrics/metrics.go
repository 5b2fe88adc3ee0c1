// Package metrics exposes prometheus counters for statement execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "fluentdb"

	MetricQueries        = "queries_total"
	MetricQueryErrors    = "query_errors_total"
	MetricCacheLookups   = "cache_lookups_total"
	MetricQueryDuration  = "query_duration_seconds"
	MetricTransactions   = "transactions_total"
	CacheResultHit       = "hit"
	CacheResultMiss      = "miss"
	CacheResultError     = "error"
	TransactionBegin     = "begin"
	TransactionSavepoint = "savepoint"
	TransactionCommit    = "commit"
	TransactionRollback  = "rollback"
)

// Recorder receives execution events.
type Recorder interface {
	ObserveQuery(operation string, d time.Duration, err error)
	ObserveCache(result string)
	ObserveTransaction(action string)
}

// Noop records nothing.
type Noop struct{}

func (Noop) ObserveQuery(string, time.Duration, error) {}
func (Noop) ObserveCache(string)                       {}
func (Noop) ObserveTransaction(string)                 {}

// Collector holds the prometheus vectors for one handle or process.
type Collector struct {
	Queries      *prometheus.CounterVec
	QueryErrors  *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Transactions *prometheus.CounterVec
}

// NewCollector builds unregistered vectors.
func NewCollector() *Collector {
	return &Collector{
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricQueries,
				Help:      "Statements executed, by operation.",
			},
			[]string{"operation"},
		),
		QueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricQueryErrors,
				Help:      "Statements that failed, by operation.",
			},
			[]string{"operation"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricCacheLookups,
				Help:      "Result cache lookups, by outcome.",
			},
			[]string{"result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      MetricQueryDuration,
				Help:      "Statement latency, by operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricTransactions,
				Help:      "Transaction counter transitions, by action.",
			},
			[]string{"action"},
		),
	}
}

// Register adds every vector to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.Queries, c.QueryErrors, c.CacheLookups, c.Duration, c.Transactions} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// ObserveQuery implements Recorder.
func (c *Collector) ObserveQuery(operation string, d time.Duration, err error) {
	c.Queries.WithLabelValues(operation).Inc()
	c.Duration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		c.QueryErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveCache implements Recorder.
func (c *Collector) ObserveCache(result string) {
	c.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveTransaction implements Recorder.
func (c *Collector) ObserveTransaction(action string) {
	c.Transactions.WithLabelValues(action).Inc()
}
