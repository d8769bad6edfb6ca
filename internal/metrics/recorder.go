// Package metrics exposes batch processing counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/siance/internal/group"
	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
)

const namespace = "siance"

// Recorder counts what the letter processor produces. It owns its registry,
// so several recorders can live in one process (tests).
type Recorder struct {
	registry    *prometheus.Registry
	letters     prometheus.Counter
	failures    *prometheus.CounterVec
	zones       *prometheus.CounterVec
	demands     *prometheus.CounterVec
	predictions prometheus.Counter
	unresolved  prometheus.Counter
	duration    prometheus.Histogram
}

// NewRecorder creates and registers the batch metrics
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		letters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "letters_processed_total",
			Help:      "Letters processed, whatever the outcome.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "letter_failures_total",
			Help:      "Per-letter failures by kind.",
		}, []string{"kind"}),
		zones: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zones_found_total",
			Help:      "Zones located, by zone.",
		}, []string{"zone"}),
		demands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demands_extracted_total",
			Help:      "Demand spans extracted, by demand type.",
		}, []string{"type"}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentence_predictions_total",
			Help:      "Sentence label predictions emitted.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_unresolved_total",
			Help:      "Decisions that fell in a category without bottom estimator.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "letter_duration_seconds",
			Help:      "Time spent processing one letter.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	r.registry.MustRegister(r.letters, r.failures, r.zones, r.demands, r.predictions, r.unresolved, r.duration)
	return r
}

// ObserveReport records one processed letter
func (r *Recorder) ObserveReport(report *model.Report, elapsed time.Duration) {
	r.letters.Inc()
	r.duration.Observe(elapsed.Seconds())
	for _, f := range report.Failures {
		r.failures.WithLabelValues(string(f.Kind)).Inc()
	}
	for _, z := range report.Zones {
		r.zones.WithLabelValues(z.Priority.String()).Inc()
	}
	for _, d := range report.Demands {
		r.demands.WithLabelValues(group.DemandType(d.Priority)).Inc()
	}
	r.predictions.Add(float64(len(report.Predictions)))
	r.unresolved.Add(float64(report.Unresolved))
}

// ObserveTimeout records a letter whose result was discarded
func (r *Recorder) ObserveTimeout() {
	r.letters.Inc()
	r.failures.WithLabelValues(string(model.FailureTimeout)).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string, log logging.Logger) error {
	log = logging.OrNop(log)
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving metrics", logging.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
