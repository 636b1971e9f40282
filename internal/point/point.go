package point

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindFloat Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the single "value" field of a point. Exactly one variant is set,
// chosen by the constructor.
type Value struct {
	kind Kind
	f    float64
	b    bool
	s    string
}

// Float creates a numeric value
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool creates a boolean value
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String creates a string value
func String(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// AsFloat returns the numeric variant; ok is false for other kinds
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean variant; ok is false for other kinds
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string variant; ok is false for other kinds
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Interface returns the underlying Go value, for writers that accept any
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return v.f
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	default:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	}
}

// Tag keys shared by every writer
const (
	TagThermostatName = "thermostat_name"
	TagSensor         = "sensor"
)

// Point is one time-series record. A zero Time means the store assigns the
// write time.
type Point struct {
	Measurement string
	Tags        map[string]string
	Time        time.Time
	Value       Value
}

// HasTime reports whether the point carries an explicit timestamp
func (p Point) HasTime() bool {
	return !p.Time.IsZero()
}
