package snapshot

import (
	"context"

	"github.com/septivank/ecobee-sync/internal/ecobee"
	"github.com/septivank/ecobee-sync/internal/point"
	"github.com/septivank/ecobee-sync/internal/validator"
	"go.uber.org/zap"
)

// Measurement names, shared with existing dashboards
const (
	MeasurementOccupancy         = "occupancy"
	MeasurementTemperature       = "temp"
	MeasurementHumidity          = "humidity"
	MeasurementActualTemperature = "actualTemperature"
	MeasurementActualHumidity    = "actualHumidity"
	MeasurementDesiredHeat       = "desiredHeat"
	MeasurementDesiredCool       = "desiredCool"
	MeasurementOutsideTemp       = "outsideTemp"
	MeasurementOutsideWind       = "outsideWind"
	MeasurementOutsideHumidity   = "outsideHumidity"
	MeasurementCurrentProgram    = "currentProgram"
)

// Sensor capability types
const (
	CapabilityOccupancy   = "occupancy"
	CapabilityTemperature = "temperature"
	CapabilityHumidity    = "humidity"
)

// ThermostatFetcher returns the current state of every registered thermostat
type ThermostatFetcher interface {
	FetchThermostats(ctx context.Context, accessToken string) ([]ecobee.Thermostat, error)
}

// Fetcher pulls the current snapshot and flattens it into points
type Fetcher struct {
	client ThermostatFetcher
	logger *zap.Logger
}

// NewFetcher creates a new snapshot fetcher
func NewFetcher(client ThermostatFetcher, logger *zap.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger}
}

// Fetch returns the thermostats and their snapshot points. Points carry no timestamp.
func (f *Fetcher) Fetch(ctx context.Context, accessToken string) ([]ecobee.Thermostat, []point.Point, error) {
	thermostats, err := f.client.FetchThermostats(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	return thermostats, Flatten(thermostats, f.logger), nil
}

// CurrentProgram returns the name of the first event when any are present,
// otherwise the scheduled climate.
func CurrentProgram(th ecobee.Thermostat) string {
	if len(th.Events) > 0 {
		return th.Events[0].Name
	}
	return th.Program.CurrentClimateRef
}

// Flatten converts thermostats into snapshot points: one per supported sensor
// capability followed by eight thermostat level points.
func Flatten(thermostats []ecobee.Thermostat, logger *zap.Logger) []point.Point {
	if logger == nil {
		logger = zap.NewNop()
	}

	var points []point.Point
	for _, th := range thermostats {
		for _, sensor := range th.RemoteSensors {
			for _, capability := range sensor.Capabilities {
				p, ok := capabilityPoint(th.Name, sensor.Name, capability, logger)
				if ok {
					points = append(points, p)
				}
			}
		}
		points = append(points, thermostatPoints(th, logger)...)
	}
	return points
}

func capabilityPoint(thermostatName, sensorName string, capability ecobee.Capability, logger *zap.Logger) (point.Point, bool) {
	var measurement string
	var value point.Value
	var result validator.ValidationResult

	switch capability.Type {
	case CapabilityOccupancy:
		var occupied bool
		occupied, result = validator.ParseBool(capability.Value)
		measurement, value = MeasurementOccupancy, point.Bool(occupied)
	case CapabilityTemperature:
		var temp float64
		temp, result = validator.ParseTenths(capability.Value)
		measurement, value = MeasurementTemperature, point.Float(temp)
	case CapabilityHumidity:
		var humidity float64
		humidity, result = validator.ParseNumber(capability.Value)
		measurement, value = MeasurementHumidity, point.Float(humidity)
	default:
		return point.Point{}, false
	}

	if !result.IsValid {
		logger.Warn("substituting default for sensor value",
			zap.String("thermostat", thermostatName),
			zap.String("sensor", sensorName),
			zap.String("capability", capability.Type),
			zap.String("reason", result.AnomalyReason),
		)
	}

	return newPoint(measurement, thermostatName, sensorName, value), true
}

func thermostatPoints(th ecobee.Thermostat, logger *zap.Logger) []point.Point {
	var forecast ecobee.Forecast
	if len(th.Weather.Forecasts) > 0 {
		forecast = th.Weather.Forecasts[0]
	} else {
		logger.Warn("thermostat has no weather forecast, using zero values", zap.String("thermostat", th.Name))
	}

	name := th.Name
	return []point.Point{
		newPoint(MeasurementActualTemperature, name, name, point.Float(validator.Tenths(th.Runtime.ActualTemperature))),
		newPoint(MeasurementActualHumidity, name, name, point.Float(float64(th.Runtime.ActualHumidity))),
		newPoint(MeasurementDesiredHeat, name, name, point.Float(validator.Tenths(th.Runtime.DesiredHeat))),
		newPoint(MeasurementDesiredCool, name, name, point.Float(validator.Tenths(th.Runtime.DesiredCool))),
		newPoint(MeasurementOutsideTemp, name, name, point.Float(validator.Tenths(forecast.Temperature))),
		newPoint(MeasurementOutsideWind, name, name, point.Float(float64(forecast.WindSpeed))),
		newPoint(MeasurementOutsideHumidity, name, name, point.Float(float64(forecast.RelativeHumidity))),
		newPoint(MeasurementCurrentProgram, name, name, point.String(CurrentProgram(th))),
	}
}

func newPoint(measurement, thermostatName, sensorName string, value point.Value) point.Point {
	return point.Point{
		Measurement: measurement,
		Tags: map[string]string{
			point.TagThermostatName: thermostatName,
			point.TagSensor:         sensorName,
		},
		Value: value,
	}
}
