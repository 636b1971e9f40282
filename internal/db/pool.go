package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// PoolOptions tunes the point store pool
type PoolOptions struct {
	URL             string
	ApplicationName string
	ConnectTimeout  time.Duration
}

// NewPool creates the point store pool. The database is pinged when the app starts.
func NewPool(lc fx.Lifecycle, logger *zap.Logger, opts PoolOptions) (*pgxpool.Pool, error) {
	masked := MaskPassword(opts.URL)
	logger.Info("initializing point store pool", zap.String("url", masked))

	config, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to parse DATABASE_URL %s: %w", masked, err)
	}
	// a run issues one query or one batch at a time
	config.MaxConns = 2
	config.MinConns = 0
	if opts.ConnectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.ApplicationName != "" {
		config.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create connection pool: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				logger.Error("point store ping failed", zap.Error(err), zap.String("url", masked))
				return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach %s. Check DATABASE_URL and that the ecobee_points table exists: %w", masked, err)
			}
			logger.Info("point store connected", zap.String("database", config.ConnConfig.Database))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("point store pool closed")
			return nil
		},
	})

	return pool, nil
}

// redacted matches what url.URL.Redacted puts in place of a password
const redacted = "xxxxx"

// MaskPassword hides the password of a postgres URL or key/value DSN for logging
func MaskPassword(dsn string) string {
	if dsn == "" {
		return "<empty>"
	}

	if !strings.Contains(dsn, "://") {
		fields := strings.Fields(dsn)
		for i, f := range fields {
			if strings.HasPrefix(f, "password=") {
				fields[i] = "password=" + redacted
			}
		}
		return strings.Join(fields, " ")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid url>"
	}
	if q := u.Query(); q.Has("password") {
		q.Set("password", redacted)
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
