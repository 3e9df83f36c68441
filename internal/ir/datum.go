package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Term is a sealed interface for clause arguments.
// Every Datum is a Term; Var is the only non-literal Term.
type Term interface {
	term()
}

// Datum is a sealed interface for literal values.
// Only Int, String and Bool implement it. There is no float datum.
type Datum interface {
	Term
	datum()
	fmt.Stringer
}

// Int is a 64-bit integer datum.
type Int int64

func (Int) term()  {}
func (Int) datum() {}

// String renders the integer in base 10.
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// String is a text datum.
type String string

func (String) term()  {}
func (String) datum() {}

// String renders the value as a Go-quoted string.
func (s String) String() string { return strconv.Quote(string(s)) }

// Bool is a boolean datum.
type Bool bool

func (Bool) term()  {}
func (Bool) datum() {}

// String renders true or false.
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Var is a named variable. Variable names are scoped to a single clause.
type Var string

func (Var) term() {}

// String renders the variable with its ? prefix.
func (v Var) String() string { return "?" + string(v) }

// IsVar reports whether t is a variable.
func IsVar(t Term) bool {
	_, ok := t.(Var)
	return ok
}

// typeRank orders datum kinds: Bool < Int < String.
func typeRank(d Datum) int {
	switch d.(type) {
	case Bool:
		return 0
	case Int:
		return 1
	case String:
		return 2
	default:
		return 3
	}
}

// CompareDatum returns -1, 0 or 1. Datums of different kinds are ordered by
// kind first.
func CompareDatum(a, b Datum) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case Bool:
		bv := b.(Bool)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	case Int:
		bv := b.(Int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case String:
		return strings.Compare(string(av), string(b.(String)))
	default:
		return 0
	}
}

// FromAny converts a decoded Go value into a Datum.
// Accepts the shapes produced by encoding/json (with UseNumber), yaml.v3 and
// CUE: string, bool, every signed and unsigned integer type, json.Number.
// Floats, nil and composite values are rejected.
func FromAny(v any) (Datum, error) {
	switch val := v.(type) {
	case Datum:
		return val, nil
	case nil:
		return nil, fmt.Errorf("null is not a datum")
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintDatum(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintDatum(val)
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not datums: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not datums: %v", val)
	default:
		return nil, fmt.Errorf("unsupported datum type: %T", v)
	}
}

func uintDatum(u uint64) (Datum, error) {
	if u > 1<<63-1 {
		return nil, fmt.Errorf("number out of int64 range: %d", u)
	}
	return Int(int64(u)), nil
}

// UnmarshalRow parses a JSON array of scalars into a Row.
// Floats, nulls and nested values are rejected.
func UnmarshalRow(data []byte) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}

	row := make(Row, len(raw))
	for i, v := range raw {
		d, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("row[%d]: %w", i, err)
		}
		row[i] = d
	}
	return row, nil
}
