package ecobee

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// RuntimeColumns is the column list requested for runtime reports, in row order
// after the date and time columns.
const RuntimeColumns = "auxHeat1,compCool1,fan,outdoorTemp,zoneAveTemp"

// RuntimeReportRequest describes a runtime report for a single thermostat
type RuntimeReportRequest struct {
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Columns   string    `json:"columns"`
	Selection Selection `json:"selection"`
}

// NewRuntimeReportRequest builds a request for one thermostat between two dates (YYYY-MM-DD, inclusive)
func NewRuntimeReportRequest(identifier, startDate, endDate string) RuntimeReportRequest {
	return RuntimeReportRequest{
		StartDate: startDate,
		EndDate:   endDate,
		Columns:   RuntimeColumns,
		Selection: Selection{
			SelectionType:  "thermostats",
			SelectionMatch: identifier,
		},
	}
}

// RuntimeReport holds the comma separated rows for one thermostat.
// Rows cover every 5 minute slot up to now; slots without data have empty columns.
type RuntimeReport struct {
	ThermostatIdentifier string   `json:"thermostatIdentifier"`
	RowCount             int      `json:"rowCount"`
	RowList              []string `json:"rowList"`
}

type runtimeReportResponse struct {
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Columns    string          `json:"columns"`
	ReportList []RuntimeReport `json:"reportList"`
	Status     Status          `json:"status"`
}

// FetchRuntimeReport fetches the runtime report described by req and returns
// the first report in the response.
func (c *Client) FetchRuntimeReport(ctx context.Context, accessToken string, req RuntimeReportRequest) (RuntimeReport, error) {
	const op = "fetch runtime report"

	query, err := jsonBodyQuery(req)
	if err != nil {
		return RuntimeReport{}, decodeError(op, err)
	}

	var resp runtimeReportResponse
	if err := c.do(ctx, op, http.MethodGet, "/1/runtimeReport", query, accessToken, &resp); err != nil {
		return RuntimeReport{}, err
	}

	if len(resp.ReportList) == 0 {
		return RuntimeReport{}, decodeError(op, fmt.Errorf("no report returned for thermostat %s", req.Selection.SelectionMatch))
	}

	report := resp.ReportList[0]
	c.logger.Debug("runtime report fetched",
		zap.String("thermostat", report.ThermostatIdentifier),
		zap.Int("rows", len(report.RowList)),
	)
	return report, nil
}
