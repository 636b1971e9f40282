package influx

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/septivank/ecobee-sync/internal/point"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// FieldName is the single field every point carries
const FieldName = "value"

// Options holds InfluxDB connection settings. Against InfluxDB 1.8 the token
// is "user:password" and the bucket is the database name. LatestTime queries
// in Flux, so a 1.x server needs flux-enabled = true in its [http] section.
type Options struct {
	URL       string
	Token     string
	Org       string
	Bucket    string
	VerifyTLS bool
}

// Store reads and writes points in InfluxDB
type Store struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
	logger *zap.Logger
}

// NewStore creates a new InfluxDB store. No connection is made until first use.
func NewStore(opts Options, logger *zap.Logger) *Store {
	clientOpts := influxdb2.DefaultOptions().
		SetTLSConfig(&tls.Config{InsecureSkipVerify: !opts.VerifyTLS}).
		SetHTTPRequestTimeout(30)

	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token, clientOpts)
	return &Store{
		client: client,
		write:  client.WriteAPIBlocking(opts.Org, opts.Bucket),
		query:  client.QueryAPI(opts.Org),
		bucket: opts.Bucket,
		logger: logger,
	}
}

// RegisterLifecycle pings the server on start and closes the client on stop
func (s *Store) RegisterLifecycle(lc fx.Lifecycle, serverURL string) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.logger.Info("attempting to connect to influxdb...", zap.String("url", serverURL))
			if err := s.Ping(ctx); err != nil {
				s.logger.Error("influxdb ping failed", zap.Error(err))
				return err
			}
			s.logger.Info("influxdb connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Close()
			s.logger.Info("influxdb client closed")
			return nil
		},
	})
}

// Ping checks the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("[INFLUXDB CONNECTION FAILED] cannot reach influxdb: %w", err)
	}
	if !ok {
		return fmt.Errorf("[INFLUXDB CONNECTION FAILED] influxdb is not ready")
	}
	return nil
}

// Close releases the client's resources
func (s *Store) Close() {
	s.client.Close()
}

// LatestTime returns the timestamp of the newest point in measurement tagged tagKey=tagValue
func (s *Store) LatestTime(ctx context.Context, measurement, tagKey, tagValue string) (time.Time, bool, error) {
	result, err := s.query.Query(ctx, LatestQuery(s.bucket, measurement, tagKey, tagValue))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("[INFLUXDB] failed to query latest %s point (InfluxDB 1.x needs flux-enabled = true): %w", measurement, err)
	}
	defer result.Close()

	var latest time.Time
	found := false
	for result.Next() {
		ts := result.Record().Time()
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	}
	if err := result.Err(); err != nil {
		return time.Time{}, false, fmt.Errorf("[INFLUXDB] failed to read latest %s point: %w", measurement, err)
	}
	return latest, found, nil
}

// WritePoints writes a batch of points in a single request
func (s *Store) WritePoints(ctx context.Context, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}

	batch := make([]*write.Point, 0, len(points))
	for _, p := range points {
		batch = append(batch, ToWritePoint(p))
	}

	if err := s.write.WritePoint(ctx, batch...); err != nil {
		return fmt.Errorf("[INFLUXDB] failed to write %d points: %w", len(points), err)
	}

	s.logger.Debug("points written to influxdb", zap.Int("count", len(points)))
	return nil
}

// ToWritePoint converts a point into the client's representation. Points
// without a timestamp are stamped by the server on arrival.
func ToWritePoint(p point.Point) *write.Point {
	wp := write.NewPointWithMeasurement(p.Measurement)
	for k, v := range p.Tags {
		wp.AddTag(k, v)
	}
	wp.SortTags()
	wp.AddField(FieldName, p.Value.Interface())
	if p.HasTime() {
		wp.SetTime(p.Time)
	}
	return wp
}

// LatestQuery builds the Flux query for the newest point of one tagged series
func LatestQuery(bucket, measurement, tagKey, tagValue string) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q and r[%q] == %q and r._field == %q)
  |> last()`, bucket, measurement, tagKey, tagValue, FieldName)
}
