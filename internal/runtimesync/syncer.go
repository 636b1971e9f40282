package runtimesync

import (
	"context"
	"fmt"
	"time"

	"github.com/septivank/ecobee-sync/internal/ecobee"
	"github.com/septivank/ecobee-sync/internal/point"
	"github.com/septivank/ecobee-sync/tools/timeparser"
	"go.uber.org/zap"
)

// State is the per-thermostat sync decision
type State string

const (
	// StateFresh means the stored runtime series is recent enough; nothing is fetched.
	StateFresh State = "fresh"
	// StateStale means a runtime report is fetched and new rows are admitted.
	StateStale State = "stale"
)

// LatestPointReader finds the timestamp of the newest point of a series
type LatestPointReader interface {
	LatestTime(ctx context.Context, measurement, tagKey, tagValue string) (time.Time, bool, error)
}

// ReportFetcher fetches a runtime report for one thermostat
type ReportFetcher interface {
	FetchRuntimeReport(ctx context.Context, accessToken string, req ecobee.RuntimeReportRequest) (ecobee.RuntimeReport, error)
}

// Config holds syncer settings
type Config struct {
	ThresholdMinutes int
	Location         *time.Location
	Now              func() time.Time
}

// Result describes what happened to one thermostat
type Result struct {
	Thermostat   string    `json:"thermostat"`
	State        State     `json:"state"`
	LastRecorded time.Time `json:"last_recorded"`
	Points       int       `json:"points"`
}

// Syncer fetches only the runtime report rows not yet stored
type Syncer struct {
	store     LatestPointReader
	reports   ReportFetcher
	threshold int
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewSyncer creates a new runtime syncer
func NewSyncer(store LatestPointReader, reports ReportFetcher, cfg Config, logger *zap.Logger) *Syncer {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		store:     store,
		reports:   reports,
		threshold: cfg.ThresholdMinutes,
		loc:       loc,
		now:       now,
		logger:    logger,
	}
}

// Classify decides whether a thermostat needs a report fetch. A series with
// no stored point is always stale.
func Classify(last time.Time, found bool, now time.Time, thresholdMinutes int) State {
	if !found {
		return StateStale
	}
	if timeparser.IsOlderThan(last, now, thresholdMinutes) {
		return StateStale
	}
	return StateFresh
}

// Sync runs the fresh/stale decision for each thermostat and returns the
// admitted runtime points of the stale ones.
func (s *Syncer) Sync(ctx context.Context, accessToken string, thermostats []ecobee.Thermostat) ([]point.Point, []Result, error) {
	var points []point.Point
	results := make([]Result, 0, len(thermostats))

	for _, th := range thermostats {
		thPoints, result, err := s.syncThermostat(ctx, accessToken, th)
		if err != nil {
			return points, results, err
		}
		points = append(points, thPoints...)
		results = append(results, result)
	}
	return points, results, nil
}

func (s *Syncer) syncThermostat(ctx context.Context, accessToken string, th ecobee.Thermostat) ([]point.Point, Result, error) {
	result := Result{Thermostat: th.Name}

	last, found, err := s.store.LatestTime(ctx, MeasurementFanTime, point.TagSensor, th.Name)
	if err != nil {
		return nil, result, fmt.Errorf("failed to query last runtime point for %s: %w", th.Name, err)
	}
	if !found {
		last = time.Time{}
	}
	result.LastRecorded = last

	now := s.now()
	result.State = Classify(last, found, now, s.threshold)

	if found {
		s.logger.Info("last runtime report timestamp",
			zap.String("thermostat", th.Name),
			zap.Time("last_recorded", last),
			zap.Float64("elapsed_minutes", timeparser.ElapsedMinutes(last, now)),
		)
	} else {
		s.logger.Info("no runtime points stored yet", zap.String("thermostat", th.Name))
	}

	if result.State == StateFresh {
		s.logger.Info("thermostat not queried, last runtime point is recent",
			zap.String("thermostat", th.Name),
			zap.Int("threshold_minutes", s.threshold),
		)
		return nil, result, nil
	}

	start, end := timeparser.ReportWindow(now, s.loc)
	report, err := s.reports.FetchRuntimeReport(ctx, accessToken, ecobee.NewRuntimeReportRequest(th.Identifier, start, end))
	if err != nil {
		return nil, result, err
	}

	rows := make([]Row, 0, len(report.RowList))
	for _, raw := range report.RowList {
		row, err := ParseRow(raw, s.loc)
		if err != nil {
			s.logger.Warn("skipping malformed runtime row",
				zap.String("thermostat", th.Name),
				zap.String("row", raw),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, row)
	}

	points := AdmitRows(th.Name, rows, last, s.logger)
	result.Points = len(points)

	s.logger.Info("runtime points collected",
		zap.String("thermostat", th.Name),
		zap.Int("points", len(points)),
		zap.String("start_date", start),
		zap.String("end_date", end),
	)
	return points, result, nil
}
