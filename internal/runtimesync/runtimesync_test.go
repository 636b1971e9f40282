package runtimesync

import (
	"context"
	"testing"
	"time"

	"github.com/septivank/ecobee-sync/internal/ecobee"
	"github.com/septivank/ecobee-sync/internal/point"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLatest struct {
	last  map[string]time.Time
	err   error
	calls []string
}

func (f *fakeLatest) LatestTime(_ context.Context, measurement, tagKey, tagValue string) (time.Time, bool, error) {
	f.calls = append(f.calls, measurement+"/"+tagKey+"="+tagValue)
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	ts, ok := f.last[tagValue]
	return ts, ok, nil
}

type fakeReports struct {
	rows     []string
	requests []ecobee.RuntimeReportRequest
	err      error
}

func (f *fakeReports) FetchRuntimeReport(_ context.Context, _ string, req ecobee.RuntimeReportRequest) (ecobee.RuntimeReport, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return ecobee.RuntimeReport{}, f.err
	}
	return ecobee.RuntimeReport{ThermostatIdentifier: req.Selection.SelectionMatch, RowList: f.rows}, nil
}

var (
	day      = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	at       = func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	mainTher = ecobee.Thermostat{Identifier: "311000000001", Name: "Main Floor"}
)

func reportRows() []string {
	return []string{
		"2025-01-02,10:00:00,300,0,300,21.5,70.4,",
		"2025-01-02,10:05:00,120,0,300,21.5,70.3,",
		"2025-01-02,10:10:00,0,0,0,21.4,70.1,",
		"2025-01-02,10:15:00,,0,60,21.4,70.0,",
		"2025-01-02,10:20:00,,,,,,",
	}
}

func TestParseRow(t *testing.T) {
	row, err := ParseRow("2025-01-02,10:00:00,300,0,,21.5,70.4,", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), row.Time)
	assert.Equal(t, "300", row.Heat)
	assert.Equal(t, "0", row.Cool)
	assert.Equal(t, "", row.Fan)
	assert.Equal(t, "21.5", row.OutdoorTemp)
	assert.Equal(t, "70.4", row.ZoneTemp)
}

func TestParseRow_WithoutTrailingComma(t *testing.T) {
	row, err := ParseRow("2025-01-02,10:00:00,1,2,3,4,5", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "3", row.Fan)
}

func TestParseRow_Malformed(t *testing.T) {
	_, err := ParseRow("2025-01-02,10:00:00,1,2", time.UTC)
	assert.Error(t, err)

	_, err = ParseRow("yesterday,10:00:00,1,2,3,4,5,", time.UTC)
	assert.Error(t, err)
}

func parseAll(t *testing.T, raws []string) []Row {
	t.Helper()
	rows := make([]Row, 0, len(raws))
	for _, raw := range raws {
		row, err := ParseRow(raw, time.UTC)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func count(points []point.Point, measurement string) int {
	n := 0
	for _, p := range points {
		if p.Measurement == measurement {
			n++
		}
	}
	return n
}

func TestAdmitRows_StrictlyAfterLast(t *testing.T) {
	points := AdmitRows("Main Floor", parseAll(t, reportRows()), at(10, 5), nil)

	for _, p := range points {
		assert.True(t, p.Time.After(at(10, 5)), "point at %v should not be admitted", p.Time)
	}
	// 10:10 -> heat, cool, fan; 10:15 -> cool, fan; 10:20 -> nothing
	assert.Len(t, points, 5)
}

func TestAdmitRows_ZeroFanIsEmitted(t *testing.T) {
	rows := parseAll(t, []string{"2025-01-02,10:10:00,,,0,21.4,70.1,"})

	points := AdmitRows("Main Floor", rows, at(10, 5), nil)
	require.Len(t, points, 1)
	assert.Equal(t, MeasurementFanTime, points[0].Measurement)
	v, ok := points[0].Value.AsFloat()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, at(10, 10), points[0].Time)
	assert.Equal(t, "Main Floor", points[0].Tags[point.TagSensor])
}

func TestAdmitRows_EmptyHeatNotEmitted(t *testing.T) {
	rows := parseAll(t, []string{"2025-01-02,10:15:00,,30,60,21.4,70.0,"})

	points := AdmitRows("Main Floor", rows, at(10, 5), nil)
	assert.Equal(t, 0, count(points, MeasurementHeatTime))
	assert.Equal(t, 1, count(points, MeasurementCoolTime))
	assert.Equal(t, 1, count(points, MeasurementFanTime))
}

func TestAdmitRows_ZeroLastAdmitsAll(t *testing.T) {
	points := AdmitRows("Main Floor", parseAll(t, reportRows()), time.Time{}, nil)

	// 3 + 3 + 3 + 2 + 0
	assert.Len(t, points, 11)
}

func TestAdmitRows_InvalidValueSkipped(t *testing.T) {
	rows := parseAll(t, []string{"2025-01-02,10:10:00,abc,0,30,21.4,70.1,"})

	points := AdmitRows("Main Floor", rows, time.Time{}, zap.NewNop())
	assert.Equal(t, 0, count(points, MeasurementHeatTime))
	assert.Len(t, points, 2)
}

func TestClassify(t *testing.T) {
	last := at(10, 5)

	assert.Equal(t, StateFresh, Classify(last, true, at(10, 40), 60))
	assert.Equal(t, StateStale, Classify(last, true, at(11, 10), 60))
	assert.Equal(t, StateFresh, Classify(last, true, at(11, 5), 60))
	assert.Equal(t, StateStale, Classify(time.Time{}, false, at(10, 40), 60))
}

func newTestSyncer(store LatestPointReader, reports ReportFetcher, now time.Time) *Syncer {
	return NewSyncer(store, reports, Config{
		ThresholdMinutes: 60,
		Location:         time.UTC,
		Now:              func() time.Time { return now },
	}, zap.NewNop())
}

func TestSync_FreshSkipsReport(t *testing.T) {
	store := &fakeLatest{last: map[string]time.Time{"Main Floor": at(10, 5)}}
	reports := &fakeReports{rows: reportRows()}

	points, results, err := newTestSyncer(store, reports, at(10, 40)).Sync(context.Background(), "access-1", []ecobee.Thermostat{mainTher})
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Empty(t, reports.requests)
	require.Len(t, results, 1)
	assert.Equal(t, StateFresh, results[0].State)
	assert.Equal(t, []string{"fantime/sensor=Main Floor"}, store.calls)
}

func TestSync_StaleFetchesAndFilters(t *testing.T) {
	store := &fakeLatest{last: map[string]time.Time{"Main Floor": at(10, 5)}}
	reports := &fakeReports{rows: reportRows()}

	points, results, err := newTestSyncer(store, reports, at(11, 10)).Sync(context.Background(), "access-1", []ecobee.Thermostat{mainTher})
	require.NoError(t, err)

	require.Len(t, reports.requests, 1)
	req := reports.requests[0]
	assert.Equal(t, "2025-01-01", req.StartDate)
	assert.Equal(t, "2025-01-02", req.EndDate)
	assert.Equal(t, "311000000001", req.Selection.SelectionMatch)
	assert.Equal(t, ecobee.RuntimeColumns, req.Columns)

	assert.Len(t, points, 5)
	for _, p := range points {
		assert.True(t, p.Time.After(at(10, 5)))
	}

	require.Len(t, results, 1)
	assert.Equal(t, StateStale, results[0].State)
	assert.Equal(t, 5, results[0].Points)
	assert.Equal(t, at(10, 5), results[0].LastRecorded)
}

func TestSync_FirstRunAdmitsAll(t *testing.T) {
	store := &fakeLatest{last: map[string]time.Time{}}
	reports := &fakeReports{rows: append(reportRows(), "garbage")}

	points, results, err := newTestSyncer(store, reports, at(10, 40)).Sync(context.Background(), "access-1", []ecobee.Thermostat{mainTher})
	require.NoError(t, err)
	assert.Len(t, points, 11)
	assert.Equal(t, StateStale, results[0].State)
	assert.True(t, results[0].LastRecorded.IsZero())
}

func TestSync_MultipleThermostats(t *testing.T) {
	upstairs := ecobee.Thermostat{Identifier: "311000000002", Name: "Upstairs"}
	store := &fakeLatest{last: map[string]time.Time{
		"Main Floor": at(10, 5),
		"Upstairs":   at(11, 0),
	}}
	reports := &fakeReports{rows: reportRows()}

	_, results, err := newTestSyncer(store, reports, at(11, 10)).Sync(context.Background(), "access-1", []ecobee.Thermostat{mainTher, upstairs})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StateStale, results[0].State)
	assert.Equal(t, StateFresh, results[1].State)
	assert.Len(t, reports.requests, 1)
}

func TestSync_StoreErrorPropagates(t *testing.T) {
	store := &fakeLatest{err: assert.AnError}

	_, _, err := newTestSyncer(store, &fakeReports{}, at(11, 10)).Sync(context.Background(), "access-1", []ecobee.Thermostat{mainTher})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSync_ReportErrorPropagates(t *testing.T) {
	store := &fakeLatest{last: map[string]time.Time{}}
	reports := &fakeReports{err: assert.AnError}

	_, _, err := newTestSyncer(store, reports, at(11, 10)).Sync(context.Background(), "access-1", []ecobee.Thermostat{mainTher})
	assert.ErrorIs(t, err, assert.AnError)
}
