package model

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
)

// NullMarker is the text rendering of an absent attribute value.
const NullMarker = "NULL"

// ValueKind identifies which scalar an AttrValue holds.
type ValueKind int

const (
	// KindAbsent means no value was supplied for the attribute.
	KindAbsent ValueKind = iota
	// KindText is a string value.
	KindText
	// KindBool is a boolean value.
	KindBool
	// KindInt is an integer value.
	KindInt
	// KindReal is a floating point value.
	KindReal
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	default:
		return "unknown"
	}
}

// AttrValue is a tri-state scalar: a present text, boolean, integer or real
// value, or Absent. The zero value is Absent.
type AttrValue struct {
	kind ValueKind
	text string
	b    bool
	i    int64
	f    float64
}

// Absent returns the absent value.
func Absent() AttrValue { return AttrValue{} }

// Text returns a present text value.
func Text(s string) AttrValue { return AttrValue{kind: KindText, text: s} }

// Bool returns a present boolean value.
func Bool(b bool) AttrValue { return AttrValue{kind: KindBool, b: b} }

// Int returns a present integer value.
func Int(i int64) AttrValue { return AttrValue{kind: KindInt, i: i} }

// Real returns a present real value.
func Real(f float64) AttrValue { return AttrValue{kind: KindReal, f: f} }

// Kind reports which scalar the value holds.
func (v AttrValue) Kind() ValueKind { return v.kind }

// Present reports whether the value is not Absent.
func (v AttrValue) Present() bool { return v.kind != KindAbsent }

// AsText returns the text payload. ok is false for non-text values.
func (v AttrValue) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsBool returns the boolean payload. ok is false for non-bool values.
func (v AttrValue) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload. ok is false for non-int values.
func (v AttrValue) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsReal returns the real payload. ok is false for non-real values.
func (v AttrValue) AsReal() (float64, bool) { return v.f, v.kind == KindReal }

// String renders the value; Absent renders as NullMarker.
func (v AttrValue) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return NullMarker
	}
}

// Equal reports whether two values have the same kind and payload.
func (v AttrValue) Equal(o AttrValue) bool {
	return v == o
}

// Value implements driver.Valuer so an Absent value is stored as SQL NULL.
func (v AttrValue) Value() (driver.Value, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i, nil
	case KindReal:
		return v.f, nil
	default:
		return nil, nil
	}
}

// MarshalJSON encodes Absent as null and every other value as its JSON scalar.
func (v AttrValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindReal:
		return json.Marshal(v.f)
	default:
		return []byte("null"), nil
	}
}
