package ecobee

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Selection chooses which thermostats a request covers and what they include
type Selection struct {
	SelectionType          string `json:"selectionType"`
	SelectionMatch         string `json:"selectionMatch"`
	IncludeRuntime         bool   `json:"includeRuntime,omitempty"`
	IncludeEquipmentStatus bool   `json:"includeEquipmentStatus,omitempty"`
	IncludeWeather         bool   `json:"includeWeather,omitempty"`
	IncludeSensors         bool   `json:"includeSensors,omitempty"`
	IncludeExtendedRuntime bool   `json:"includeExtendedRuntime,omitempty"`
	IncludeDevice          bool   `json:"includeDevice,omitempty"`
	IncludeEvents          bool   `json:"includeEvents,omitempty"`
	IncludeProgram         bool   `json:"includeProgram,omitempty"`
}

// SnapshotSelection requests every registered thermostat with the full current state
func SnapshotSelection() Selection {
	return Selection{
		SelectionType:          "registered",
		SelectionMatch:         "",
		IncludeRuntime:         true,
		IncludeEquipmentStatus: true,
		IncludeWeather:         true,
		IncludeSensors:         true,
		IncludeExtendedRuntime: true,
		IncludeDevice:          true,
		IncludeEvents:          true,
		IncludeProgram:         true,
	}
}

// Thermostat is one entry of thermostatList
type Thermostat struct {
	Identifier      string         `json:"identifier"`
	Name            string         `json:"name"`
	ModelNumber     string         `json:"modelNumber"`
	EquipmentStatus string         `json:"equipmentStatus"`
	Runtime         Runtime        `json:"runtime"`
	Weather         Weather        `json:"weather"`
	Program         Program        `json:"program"`
	Events          []Event        `json:"events"`
	RemoteSensors   []RemoteSensor `json:"remoteSensors"`
}

// Runtime holds the thermostat's current readings. Temperatures are in tenths of a degree.
type Runtime struct {
	Connected         bool `json:"connected"`
	ActualTemperature int  `json:"actualTemperature"`
	ActualHumidity    int  `json:"actualHumidity"`
	DesiredHeat       int  `json:"desiredHeat"`
	DesiredCool       int  `json:"desiredCool"`
}

type Weather struct {
	WeatherStation string     `json:"weatherStation"`
	Forecasts      []Forecast `json:"forecasts"`
}

// Forecast temperature is in tenths of a degree
type Forecast struct {
	Condition        string `json:"condition"`
	Temperature      int    `json:"temperature"`
	WindSpeed        int    `json:"windSpeed"`
	RelativeHumidity int    `json:"relativeHumidity"`
}

type Program struct {
	CurrentClimateRef string `json:"currentClimateRef"`
}

// Event is a hold, vacation or demand-response event overriding the program
type Event struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

type RemoteSensor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Capabilities []Capability `json:"capability"`
}

// Capability values are always strings on the wire
type Capability struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type thermostatResponse struct {
	Thermostats []Thermostat `json:"thermostatList"`
	Status      Status       `json:"status"`
}

type thermostatRequest struct {
	Selection Selection `json:"selection"`
}

// FetchThermostats returns the current state of every registered thermostat
func (c *Client) FetchThermostats(ctx context.Context, accessToken string) ([]Thermostat, error) {
	const op = "fetch thermostats"

	query, err := jsonBodyQuery(thermostatRequest{Selection: SnapshotSelection()})
	if err != nil {
		return nil, decodeError(op, err)
	}

	var resp thermostatResponse
	if err := c.do(ctx, op, http.MethodGet, "/1/thermostat", query, accessToken, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("thermostats fetched", zap.Int("count", len(resp.Thermostats)))
	return resp.Thermostats, nil
}
