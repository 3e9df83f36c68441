package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/flowlog/internal/ir"
)

// DecodeProgram builds a Program from a CUE value of the form:
//
//	relation: edge: facts: [[1, 2], [2, 3]]
//	relation: reachable: {
//		facts: [[1]]
//		rules: [{
//			head: ["?A"]
//			body: [{reachable: ["?B"]}, {edge: ["?B", "?A"]}]
//		}]
//	}
//
// Strings starting with "?" are variables. Other strings, integers and
// booleans are literals. Floats are rejected.
//
// Relations are added in CUE field order; within a relation facts come
// before rules. DecodeProgram does not validate the result.
func DecodeProgram(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	relsVal := v.LookupPath(cue.ParsePath("relation"))
	if !relsVal.Exists() {
		return nil, &DecodeError{
			Field:   "relation",
			Message: "at least one relation is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	p := NewProgram()
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if err := decodeRelation(p, name, iter.Value()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func decodeRelation(p *Program, name string, v cue.Value) error {
	factsVal := v.LookupPath(cue.ParsePath("facts"))
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !factsVal.Exists() && !rulesVal.Exists() {
		return &DecodeError{
			Field:   "relation." + name,
			Message: "relation needs facts or rules",
			Pos:     v.Pos(),
		}
	}

	if factsVal.Exists() {
		facts, err := factsVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; facts.Next(); i++ {
			field := fmt.Sprintf("relation.%s.facts[%d]", name, i)
			args, err := decodeArgs(field, facts.Value())
			if err != nil {
				return err
			}
			p.Clause(ir.Atom{Name: name, Args: args})
		}
	}

	if rulesVal.Exists() {
		rules, err := rulesVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; rules.Next(); i++ {
			field := fmt.Sprintf("relation.%s.rules[%d]", name, i)
			head, body, err := decodeRule(field, name, rules.Value())
			if err != nil {
				return err
			}
			p.Clause(head, body...)
		}
	}
	return nil
}

func decodeRule(field, name string, v cue.Value) (ir.Atom, []ir.Atom, error) {
	headVal := v.LookupPath(cue.ParsePath("head"))
	if !headVal.Exists() {
		return ir.Atom{}, nil, &DecodeError{
			Field:   field + ".head",
			Message: "head is required",
			Pos:     v.Pos(),
		}
	}
	headArgs, err := decodeArgs(field+".head", headVal)
	if err != nil {
		return ir.Atom{}, nil, err
	}
	head := ir.Atom{Name: name, Args: headArgs}

	var body []ir.Atom
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return head, nil, nil
	}
	items, err := bodyVal.List()
	if err != nil {
		return ir.Atom{}, nil, formatCUEError(err)
	}
	for i := 0; items.Next(); i++ {
		atom, err := decodeBodyAtom(fmt.Sprintf("%s.body[%d]", field, i), items.Value())
		if err != nil {
			return ir.Atom{}, nil, err
		}
		body = append(body, atom)
	}
	return head, body, nil
}

// decodeBodyAtom reads a single-field struct {name: [args...]}.
func decodeBodyAtom(field string, v cue.Value) (ir.Atom, error) {
	iter, err := v.Fields()
	if err != nil {
		return ir.Atom{}, &DecodeError{
			Field:   field,
			Message: "body atom must be a struct like {edge: [\"?A\", \"?B\"]}",
			Pos:     v.Pos(),
		}
	}

	var atoms []ir.Atom
	for iter.Next() {
		name := iter.Selector().Unquoted()
		args, err := decodeArgs(field+"."+name, iter.Value())
		if err != nil {
			return ir.Atom{}, err
		}
		atoms = append(atoms, ir.Atom{Name: name, Args: args})
	}
	if len(atoms) != 1 {
		return ir.Atom{}, &DecodeError{
			Field:   field,
			Message: fmt.Sprintf("body atom must name exactly one relation, got %d", len(atoms)),
			Pos:     v.Pos(),
		}
	}
	return atoms[0], nil
}

func decodeArgs(field string, v cue.Value) ([]ir.Term, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &DecodeError{
			Field:   field,
			Message: "arguments must be a list",
			Pos:     v.Pos(),
		}
	}

	args := []ir.Term{}
	for i := 0; iter.Next(); i++ {
		t, err := decodeTerm(fmt.Sprintf("%s[%d]", field, i), iter.Value())
		if err != nil {
			return nil, err
		}
		args = append(args, t)
	}
	return args, nil
}

// decodeTerm converts one CUE scalar to a term. Floats are forbidden:
// rows are compared and hashed exactly.
func decodeTerm(field string, v cue.Value) (ir.Term, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if name, ok := strings.CutPrefix(s, "?"); ok {
			if name == "" {
				return nil, &DecodeError{Field: field, Message: `variable name is empty ("?")`, Pos: v.Pos()}
			}
			return ir.Var(name), nil
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &DecodeError{Field: field, Message: fmt.Sprintf("integer out of range: %v", err), Pos: v.Pos()}
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &DecodeError{
			Field:   field,
			Message: "floats are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	case cue.BottomKind:
		return nil, &DecodeError{
			Field:   field,
			Message: "value must be concrete",
			Pos:     v.Pos(),
		}
	default:
		return nil, &DecodeError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// DecodeError represents a decoding error with source position.
type DecodeError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DecodeError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Report the first error that carries a position.
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &DecodeError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
