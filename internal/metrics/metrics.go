package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Run is what one pipeline run reports to the metrics backend.
type Run struct {
	Success        bool
	Thermostats    int
	SnapshotPoints int
	RuntimePoints  int
	States         map[string]int
	Duration       time.Duration
	FinishedAt     time.Time
}

// Recorder bundles the job gauges and pushes them to a Pushgateway.
type Recorder struct {
	PointsWritten *prometheus.GaugeVec
	Thermostats   *prometheus.GaugeVec
	Duration      prometheus.Gauge
	LastSuccess   prometheus.Gauge
	RunsFailed    prometheus.Gauge

	// LastSuccess lives on its own registry so a failed run never pushes it
	registry        *prometheus.Registry
	successRegistry *prometheus.Registry
	succeeded       bool
	url             string
	job             string
	logger          *zap.Logger
}

// New constructs the recorder on a private registry. An empty url disables Push.
func New(url, job string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		PointsWritten: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecobee_sync_points_written",
				Help: "Points written by the last run, by stage",
			},
			[]string{"stage"},
		),
		Thermostats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecobee_sync_thermostats",
				Help: "Thermostats seen by the last run, by runtime sync state",
			},
			[]string{"state"},
		),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecobee_sync_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecobee_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		RunsFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecobee_sync_last_run_failed",
			Help: "1 if the last run failed",
		}),
		registry:        prometheus.NewRegistry(),
		successRegistry: prometheus.NewRegistry(),
		url:             url,
		job:             job,
		logger:          logger,
	}
	r.registry.MustRegister(
		r.PointsWritten,
		r.Thermostats,
		r.Duration,
		r.RunsFailed,
	)
	r.successRegistry.MustRegister(r.LastSuccess)
	return r
}

// Enabled reports whether a Pushgateway is configured
func (r *Recorder) Enabled() bool {
	return r.url != ""
}

// Gatherer returns what the next Push sends. LastSuccess is only included
// after a successful run.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r.succeeded {
		return prometheus.Gatherers{r.registry, r.successRegistry}
	}
	return r.registry
}

// Observe sets the gauges from a finished run
func (r *Recorder) Observe(run Run) {
	r.PointsWritten.WithLabelValues("snapshot").Set(float64(run.SnapshotPoints))
	r.PointsWritten.WithLabelValues("runtime").Set(float64(run.RuntimePoints))
	r.Thermostats.Reset()
	for state, n := range run.States {
		r.Thermostats.WithLabelValues(state).Set(float64(n))
	}
	r.Duration.Set(run.Duration.Seconds())

	r.succeeded = run.Success
	if !run.Success {
		r.RunsFailed.Set(1)
		return
	}
	r.RunsFailed.Set(0)
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	r.LastSuccess.Set(float64(finished.Unix()))
}

// Push ships the gauges to the Pushgateway. A successful run replaces the
// job's metric group (PUT); a failed run only updates the metrics it carries
// (POST), so the last success timestamp already on the gateway is kept.
func (r *Recorder) Push(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}

	pusher := push.New(r.url, r.job).Gatherer(r.Gatherer())
	var err error
	if r.succeeded {
		err = pusher.PushContext(ctx)
	} else {
		err = pusher.AddContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("[METRICS] failed to push to %s: %w", r.url, err)
	}
	r.logger.Debug("metrics pushed",
		zap.String("pushgateway", r.url),
		zap.String("job", r.job),
		zap.Bool("success", r.succeeded),
	)
	return nil
}
