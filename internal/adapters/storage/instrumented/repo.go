// Package instrumented decorates an activity repository with Prometheus metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/domain"
)

// metricsNamespace prefixes every exported series.
const metricsNamespace = "folio"

// result label values.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

// Recorder owns the storage and autosave collectors.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	autosaves  *prometheus.CounterVec
}

// NewRecorder registers the collectors with reg. A nil reg uses the default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Storage operations by operation and result",
		}, []string{"operation", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Storage operation latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		autosaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "autosave_total",
			Help:      "Editor autosave attempts by result",
		}, []string{"result"}),
	}
}

// ObserveAutosave counts one editor save attempt. It matches the editor save hook signature.
func (r *Recorder) ObserveAutosave(result string) {
	r.autosaves.WithLabelValues(result).Inc()
}

func (r *Recorder) observe(op string, started time.Time, err error) {
	result := resultOK
	switch {
	case errors.Is(err, app.ErrNotFound):
		result = resultNotFound
	case err != nil:
		result = resultError
	}
	r.operations.WithLabelValues(op, result).Inc()
	r.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Repository wraps another app.Repository and records every call.
type Repository struct {
	next app.Repository
	rec  *Recorder
}

// Wrap returns repo decorated with rec.
func Wrap(repo app.Repository, rec *Recorder) *Repository {
	return &Repository{next: repo, rec: rec}
}

// GetActivity records a "get" operation.
func (r *Repository) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	started := time.Now()
	a, err := r.next.GetActivity(ctx, id)
	r.rec.observe("get", started, err)
	return a, err
}

// ListActivities records a "list" operation.
func (r *Repository) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	started := time.Now()
	out, err := r.next.ListActivities(ctx)
	r.rec.observe("list", started, err)
	return out, err
}

// PutActivity records a "put" operation.
func (r *Repository) PutActivity(ctx context.Context, a domain.Activity) error {
	started := time.Now()
	err := r.next.PutActivity(ctx, a)
	r.rec.observe("put", started, err)
	return err
}

// DeleteActivity records a "delete" operation.
func (r *Repository) DeleteActivity(ctx context.Context, id string) error {
	started := time.Now()
	err := r.next.DeleteActivity(ctx, id)
	r.rec.observe("delete", started, err)
	return err
}
