package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/septivank/ecobee-sync/internal/point"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func snapshotPoint() point.Point {
	return point.Point{
		Measurement: "temp",
		Tags:        map[string]string{point.TagThermostatName: "Main Floor", point.TagSensor: "Bedroom"},
		Value:       point.Float(68.9),
	}
}

func runtimePoint() point.Point {
	return point.Point{
		Measurement: "fantime",
		Tags:        map[string]string{point.TagSensor: "Main Floor"},
		Time:        time.Date(2025, 1, 2, 10, 5, 0, 0, time.UTC),
		Value:       point.Float(300),
	}
}

func TestToWritePoint_Snapshot(t *testing.T) {
	line := write.PointToLineProtocol(ToWritePoint(snapshotPoint()), time.Second)

	assert.Equal(t, `temp,sensor=Bedroom,thermostat_name=Main\ Floor value=68.9`, strings.TrimSpace(line))
}

func TestToWritePoint_Runtime(t *testing.T) {
	line := strings.TrimSpace(write.PointToLineProtocol(ToWritePoint(runtimePoint()), time.Second))

	assert.True(t, strings.HasPrefix(line, `fantime,sensor=Main\ Floor value=300`), line)
	assert.True(t, strings.HasSuffix(line, " 1735812300"), line)
}

func TestToWritePoint_Variants(t *testing.T) {
	p := snapshotPoint()
	p.Measurement = "occupancy"
	p.Value = point.Bool(true)
	assert.Contains(t, write.PointToLineProtocol(ToWritePoint(p), time.Second), "value=true")

	p.Measurement = "currentProgram"
	p.Value = point.String("home")
	assert.Contains(t, write.PointToLineProtocol(ToWritePoint(p), time.Second), `value="home"`)
}

func TestLatestQuery(t *testing.T) {
	q := LatestQuery("ecobee", "fantime", "sensor", `Main "Floor"`)

	assert.Contains(t, q, `from(bucket: "ecobee")`)
	assert.Contains(t, q, `r._measurement == "fantime"`)
	assert.Contains(t, q, `r["sensor"] == "Main \"Floor\""`)
	assert.Contains(t, q, `r._field == "value"`)
	assert.Contains(t, q, "|> last()")
}

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewStore(Options{URL: srv.URL, Token: "user:pass", Bucket: "ecobee"}, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func TestWritePoints(t *testing.T) {
	var body string
	var path string
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	})

	err := s.WritePoints(context.Background(), []point.Point{snapshotPoint(), runtimePoint()})
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/write", path)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "temp,"))
	assert.True(t, strings.HasPrefix(lines[1], "fantime,"))
}

func TestWritePoints_Empty(t *testing.T) {
	called := false
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, s.WritePoints(context.Background(), nil))
	assert.False(t, called)
}

func TestWritePoints_ServerError(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid","message":"database not found: \"ecobee\""}`))
	})

	err := s.WritePoints(context.Background(), []point.Point{snapshotPoint()})
	assert.Error(t, err)
}

const latestCSV = "#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string,string\r\n" +
	"#group,false,false,true,true,false,false,true,true,true\r\n" +
	"#default,_result,,,,,,,,\r\n" +
	",result,table,_start,_stop,_time,_value,_field,_measurement,sensor\r\n" +
	",,0,1970-01-01T00:00:00Z,2025-01-02T12:00:00Z,2025-01-02T10:05:00Z,300,value,fantime,Main Floor\r\n" +
	"\r\n"

func TestLatestTime_Found(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/query", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(data), "fantime")

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(latestCSV))
	})

	ts, found, err := s.LatestTime(context.Background(), "fantime", "sensor", "Main Floor")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ts.Equal(time.Date(2025, 1, 2, 10, 5, 0, 0, time.UTC)), ts)
}

func TestLatestTime_NotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	})

	_, found, err := s.LatestTime(context.Background(), "fantime", "sensor", "Main Floor")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLatestTime_FluxDisabled(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Flux query service disabled. Verify flux-enabled=true in the [http] section of the InfluxDB config."}`))
	})

	_, found, err := s.LatestTime(context.Background(), "fantime", "sensor", "Main Floor")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "[INFLUXDB]")
	assert.Contains(t, err.Error(), "flux-enabled = true")
}
