package ir

import (
	"encoding/binary"
	"slices"
	"strings"
)

// Atom is an unresolved predicate reference: a relation name applied to
// arguments. It is the unit of the program construction API.
type Atom struct {
	Name string
	Args []Term
}

// NewAtom creates an Atom.
//
//	NewAtom("edge", Var("B"), Var("A"))
//	NewAtom("reachable", Int(1))
func NewAtom(name string, args ...Term) Atom {
	return Atom{Name: name, Args: args}
}

// Arity returns the number of arguments.
func (a Atom) Arity() int {
	return len(a.Args)
}

// String renders the atom as name(arg, ...).
func (a Atom) String() string {
	parts := make([]string, len(a.Args))
	for i, t := range a.Args {
		parts[i] = termString(t)
	}
	return a.Name + "(" + strings.Join(parts, ", ") + ")"
}

func termString(t Term) string {
	switch v := t.(type) {
	case Var:
		return v.String()
	case Datum:
		return v.String()
	default:
		return "<nil>"
	}
}

// Row is an ordered tuple of datums. Rows are shared between subscribers
// after emission and must not be mutated.
type Row []Datum

// Key returns an injective string encoding of the row, suitable as a map key.
func (r Row) Key() string {
	buf := make([]byte, 0, len(r)*9)
	for _, d := range r {
		buf = appendKey(buf, d)
	}
	return string(buf)
}

// KeyOf returns the Key of the row projected onto cols.
func (r Row) KeyOf(cols []int) string {
	buf := make([]byte, 0, len(cols)*9)
	for _, c := range cols {
		buf = appendKey(buf, r[c])
	}
	return string(buf)
}

func appendKey(buf []byte, d Datum) []byte {
	switch v := d.(type) {
	case Int:
		buf = append(buf, 'i')
		return binary.BigEndian.AppendUint64(buf, uint64(v))
	case String:
		buf = append(buf, 's')
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		return append(buf, v...)
	case Bool:
		if v {
			return append(buf, 'b', 1)
		}
		return append(buf, 'b', 0)
	default:
		return append(buf, '?')
	}
}

// Concat returns a new row holding r followed by other.
func (r Row) Concat(other Row) Row {
	out := make(Row, 0, len(r)+len(other))
	out = append(out, r...)
	return append(out, other...)
}

// Equal reports whether two rows hold equal datums in the same order.
func (r Row) Equal(other Row) bool {
	return CompareRows(r, other) == 0
}

// String renders the row as (d1, d2, ...).
func (r Row) String() string {
	parts := make([]string, len(r))
	for i, d := range r {
		parts[i] = d.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// CompareRows orders rows lexicographically by CompareDatum; shorter rows
// sort first on a shared prefix.
func CompareRows(a, b Row) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := CompareDatum(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// SortRows sorts rows in place with CompareRows.
func SortRows(rows []Row) {
	slices.SortFunc(rows, CompareRows)
}

// Ints builds a row of Int datums.
func Ints(vs ...int64) Row {
	row := make(Row, len(vs))
	for i, v := range vs {
		row[i] = Int(v)
	}
	return row
}
