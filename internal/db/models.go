package db

import (
	"time"

	"github.com/septivank/ecobee-sync/internal/point"
)

// PointRow represents a point in the ecobee_points table.
//
//	CREATE TABLE ecobee_points (
//	    id           BIGSERIAL PRIMARY KEY,
//	    measurement  TEXT        NOT NULL,
//	    tags         JSONB       NOT NULL,
//	    recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    value_kind   TEXT        NOT NULL,
//	    value_float  DOUBLE PRECISION,
//	    value_bool   BOOLEAN,
//	    value_string TEXT
//	);
//	CREATE INDEX ecobee_points_latest_idx ON ecobee_points (measurement, recorded_at DESC);
type PointRow struct {
	Measurement string
	Tags        map[string]string
	RecordedAt  *time.Time
	ValueKind   string
	ValueFloat  *float64
	ValueBool   *bool
	ValueString *string
}

// NewPointRow maps a point to its row. A nil RecordedAt lets the database stamp the row.
func NewPointRow(p point.Point) PointRow {
	row := PointRow{
		Measurement: p.Measurement,
		Tags:        p.Tags,
		ValueKind:   p.Value.Kind().String(),
	}
	if row.Tags == nil {
		row.Tags = map[string]string{}
	}
	if p.HasTime() {
		ts := p.Time.UTC()
		row.RecordedAt = &ts
	}

	switch p.Value.Kind() {
	case point.KindBool:
		v, _ := p.Value.AsBool()
		row.ValueBool = &v
	case point.KindString:
		v, _ := p.Value.AsString()
		row.ValueString = &v
	default:
		v, _ := p.Value.AsFloat()
		row.ValueFloat = &v
	}
	return row
}
