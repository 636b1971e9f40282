package runtimesync

import (
	"fmt"
	"strings"
	"time"

	"github.com/septivank/ecobee-sync/internal/point"
	"github.com/septivank/ecobee-sync/internal/validator"
	"github.com/septivank/ecobee-sync/tools/timeparser"
	"go.uber.org/zap"
)

// Runtime measurement names
const (
	MeasurementHeatTime = "heattime"
	MeasurementCoolTime = "cooltime"
	MeasurementFanTime  = "fantime"
)

// minRowColumns is date, time and the five requested columns
const minRowColumns = 7

// Row is one 5 minute slot of a runtime report. Empty strings mean the slot
// has no data yet.
type Row struct {
	Time        time.Time
	Heat        string
	Cool        string
	Fan         string
	OutdoorTemp string
	ZoneTemp    string
}

// ParseRow splits a report row "date,time,auxHeat1,compCool1,fan,outdoorTemp,zoneAveTemp,"
func ParseRow(raw string, loc *time.Location) (Row, error) {
	cols := strings.Split(raw, ",")
	if len(cols) < minRowColumns {
		return Row{}, fmt.Errorf("expected at least %d columns, got %d", minRowColumns, len(cols))
	}

	ts, err := timeparser.ParseReportTimestamp(cols[0], cols[1], loc)
	if err != nil {
		return Row{}, err
	}

	return Row{
		Time:        ts,
		Heat:        cols[2],
		Cool:        cols[3],
		Fan:         cols[4],
		OutdoorTemp: cols[5],
		ZoneTemp:    cols[6],
	}, nil
}

// AdmitRows turns rows strictly newer than last into runtime points. A zero
// last admits every row.
func AdmitRows(thermostatName string, rows []Row, last time.Time, logger *zap.Logger) []point.Point {
	if logger == nil {
		logger = zap.NewNop()
	}

	var points []point.Point
	for _, row := range rows {
		if !last.IsZero() && !row.Time.After(last) {
			continue
		}

		columns := []struct {
			measurement string
			raw         string
		}{
			{MeasurementHeatTime, row.Heat},
			{MeasurementCoolTime, row.Cool},
			{MeasurementFanTime, row.Fan},
		}

		for _, col := range columns {
			seconds, present, result := validator.ParseRuntimeSeconds(col.raw)
			if !present {
				continue
			}
			if !result.IsValid {
				logger.Warn("skipping runtime value",
					zap.String("thermostat", thermostatName),
					zap.String("measurement", col.measurement),
					zap.Time("slot", row.Time),
					zap.String("reason", result.AnomalyReason),
				)
				continue
			}

			points = append(points, point.Point{
				Measurement: col.measurement,
				Tags:        map[string]string{point.TagSensor: thermostatName},
				Time:        row.Time,
				Value:       point.Float(seconds),
			})
			logger.Debug("runtime slot",
				zap.String("thermostat", thermostatName),
				zap.String("measurement", col.measurement),
				zap.Float64("seconds", seconds),
				zap.Time("slot", row.Time),
			)
		}
	}
	return points
}
