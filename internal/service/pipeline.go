package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/ecobee-sync/internal/ecobee"
	"github.com/septivank/ecobee-sync/internal/logging"
	"github.com/septivank/ecobee-sync/internal/metrics"
	"github.com/septivank/ecobee-sync/internal/mq"
	"github.com/septivank/ecobee-sync/internal/point"
	"github.com/septivank/ecobee-sync/internal/runtimesync"
	"go.uber.org/zap"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// TokenRotator exchanges the stored refresh token for a fresh access token
type TokenRotator interface {
	Rotate(ctx context.Context) (string, error)
}

// SnapshotFetcher fetches thermostats and flattens them into points
type SnapshotFetcher interface {
	Fetch(ctx context.Context, accessToken string) ([]ecobee.Thermostat, []point.Point, error)
}

// RuntimeSyncer produces the runtime points not yet stored
type RuntimeSyncer interface {
	Sync(ctx context.Context, accessToken string, thermostats []ecobee.Thermostat) ([]point.Point, []runtimesync.Result, error)
}

// PointWriter writes one batch of points
type PointWriter interface {
	WritePoints(ctx context.Context, points []point.Point) error
}

// Notifier announces a finished run
type Notifier interface {
	PublishRunCompleted(ctx context.Context, event mq.RunCompletedEvent) error
}

// MetricsRecorder records and ships run metrics
type MetricsRecorder interface {
	Observe(run metrics.Run)
	Push(ctx context.Context) error
}

// NopNotifier is used when no message broker is configured
type NopNotifier struct{}

// PublishRunCompleted does nothing
func (NopNotifier) PublishRunCompleted(context.Context, mq.RunCompletedEvent) error { return nil }

// Summary describes one pipeline run
type Summary struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	Thermostats    int
	SnapshotPoints int
	RuntimePoints  int
	Results        []runtimesync.Result
}

// States counts thermostats per runtime sync state
func (s Summary) States() map[string]int {
	states := make(map[string]int, 2)
	for _, r := range s.Results {
		states[string(r.State)]++
	}
	return states
}

// Pipeline runs credential rotation, the telemetry snapshot and the runtime sync
type Pipeline struct {
	credentials TokenRotator
	snapshots   SnapshotFetcher
	runtime     RuntimeSyncer
	store       PointWriter
	notifier    Notifier
	metrics     MetricsRecorder
	now         func() time.Time
	logger      *zap.Logger
}

// PipelineDeps holds the pipeline collaborators. Notifier and Metrics are optional.
type PipelineDeps struct {
	Credentials TokenRotator
	Snapshots   SnapshotFetcher
	Runtime     RuntimeSyncer
	Store       PointWriter
	Notifier    Notifier
	Metrics     MetricsRecorder
	Now         func() time.Time
	Logger      *zap.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		credentials: deps.Credentials,
		snapshots:   deps.Snapshots,
		runtime:     deps.Runtime,
		store:       deps.Store,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		now:         deps.Now,
		logger:      deps.Logger,
	}
	if p.notifier == nil {
		p.notifier = NopNotifier{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Run executes one full sync. Snapshot points are written before the runtime
// sync starts, so a runtime failure keeps the snapshot.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:     uuid.New().String(),
		StartedAt: p.now(),
	}
	runLogger := logging.WithRunID(p.logger, summary.RunID)
	runLogger.Info("sync run started")

	err := p.run(ctx, &summary, runLogger)
	summary.Duration = p.now().Sub(summary.StartedAt)

	if err != nil {
		runLogger.Error("sync run failed", zap.Error(err), zap.Duration("duration", summary.Duration))
	} else {
		runLogger.Info("sync run finished",
			zap.Int("thermostats", summary.Thermostats),
			zap.Int("snapshot_points", summary.SnapshotPoints),
			zap.Int("runtime_points", summary.RuntimePoints),
			zap.Duration("duration", summary.Duration),
		)
	}

	p.report(ctx, summary, err, runLogger)
	return summary, err
}

func (p *Pipeline) run(ctx context.Context, summary *Summary, logger *zap.Logger) error {
	accessToken, err := p.credentials.Rotate(ctx)
	if err != nil {
		return fmt.Errorf("[CREDENTIALS] failed to rotate tokens: %w", err)
	}

	thermostats, snapshotPoints, err := p.snapshots.Fetch(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("[SNAPSHOT] failed to fetch thermostats: %w", err)
	}
	summary.Thermostats = len(thermostats)
	logger.Info("snapshot fetched",
		zap.Int("thermostats", len(thermostats)),
		zap.Int("points", len(snapshotPoints)),
	)

	if err := p.store.WritePoints(ctx, snapshotPoints); err != nil {
		return fmt.Errorf("[SNAPSHOT] failed to write %d points: %w", len(snapshotPoints), err)
	}
	summary.SnapshotPoints = len(snapshotPoints)

	runtimePoints, results, err := p.runtime.Sync(ctx, accessToken, thermostats)
	summary.Results = results
	if err != nil {
		return fmt.Errorf("[RUNTIME] failed to sync runtime reports: %w", err)
	}

	if err := p.store.WritePoints(ctx, runtimePoints); err != nil {
		return fmt.Errorf("[RUNTIME] failed to write %d points: %w", len(runtimePoints), err)
	}
	summary.RuntimePoints = len(runtimePoints)
	logger.Info("runtime synced",
		zap.Int("points", len(runtimePoints)),
		zap.Any("states", summary.States()),
	)
	return nil
}

// report publishes the run event and metrics. Failures here never fail the run.
func (p *Pipeline) report(ctx context.Context, summary Summary, runErr error, logger *zap.Logger) {
	if err := p.notifier.PublishRunCompleted(ctx, NewRunCompletedEvent(summary, runErr)); err != nil {
		logger.Warn("failed to publish run event", zap.Error(err))
	}

	if p.metrics == nil {
		return
	}
	p.metrics.Observe(metrics.Run{
		Success:        runErr == nil,
		Thermostats:    summary.Thermostats,
		SnapshotPoints: summary.SnapshotPoints,
		RuntimePoints:  summary.RuntimePoints,
		States:         summary.States(),
		Duration:       summary.Duration,
		FinishedAt:     summary.StartedAt.Add(summary.Duration),
	})
	if err := p.metrics.Push(ctx); err != nil {
		logger.Warn("failed to push metrics", zap.Error(err))
	}
}

// NewRunCompletedEvent builds the broker event for a run
func NewRunCompletedEvent(summary Summary, runErr error) mq.RunCompletedEvent {
	event := mq.RunCompletedEvent{
		RunID:          summary.RunID,
		Status:         StatusSuccess,
		StartedAt:      summary.StartedAt.UTC().Format(time.RFC3339),
		DurationMillis: summary.Duration.Milliseconds(),
		Thermostats:    summary.Thermostats,
		SnapshotPoints: summary.SnapshotPoints,
		RuntimePoints:  summary.RuntimePoints,
	}
	if runErr != nil {
		event.Status = StatusFailed
		event.Error = runErr.Error()
	}
	for _, r := range summary.Results {
		result := mq.ThermostatResult{
			Thermostat: r.Thermostat,
			State:      string(r.State),
			Points:     r.Points,
		}
		if !r.LastRecorded.IsZero() {
			result.LastRecorded = r.LastRecorded.UTC().Format(time.RFC3339)
		}
		event.Results = append(event.Results, result)
	}
	return event
}
