package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/ecobee-sync/internal/db"
	"github.com/septivank/ecobee-sync/internal/point"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

const latestPointQuery = `
	SELECT recorded_at
	FROM ecobee_points
	WHERE measurement = $1 AND tags ->> $2 = $3
	ORDER BY recorded_at DESC
	LIMIT 1
`

const insertPointQuery = `
	INSERT INTO ecobee_points (
		measurement, tags, recorded_at, value_kind,
		value_float, value_bool, value_string
	)
	VALUES ($1, $2, COALESCE($3::timestamptz, now()), $4, $5, $6, $7)
`

// Repository stores points in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LatestTime returns the timestamp of the newest point in measurement tagged tagKey=tagValue
func (r *Repository) LatestTime(ctx context.Context, measurement, tagKey, tagValue string) (time.Time, bool, error) {
	var recordedAt time.Time
	err := r.pool.QueryRow(ctx, latestPointQuery, measurement, tagKey, tagValue).Scan(&recordedAt)
	if err == pgx.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("[DATABASE] failed to query latest %s point: %w", measurement, err)
	}
	return recordedAt, true, nil
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// WritePoints inserts a batch of points in one transaction
func (r *Repository) WritePoints(ctx context.Context, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("[DATABASE] failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.InsertPointsTx(ctx, tx, points); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("[DATABASE] failed to commit transaction: %w", err)
	}
	return nil
}

// InsertPointsTx queues every insert in a single batch within a transaction
func (r *Repository) InsertPointsTx(ctx context.Context, tx pgx.Tx, points []point.Point) error {
	batch := &pgx.Batch{}
	for _, p := range points {
		row := db.NewPointRow(p)
		batch.Queue(insertPointQuery,
			row.Measurement,
			row.Tags,
			row.RecordedAt,
			row.ValueKind,
			row.ValueFloat,
			row.ValueBool,
			row.ValueString,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range points {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("[DATABASE] failed to insert point %d (%s): %w", i, points[i].Measurement, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("[DATABASE] failed to close batch: %w", err)
	}
	return nil
}
