package compiler

import (
	"fmt"
	"strings"
)

// Validation error codes (E200-E299)
const (
	ErrArityMismatch = "E201" // relation used with different arities
	ErrUndefinedBody = "E202" // body references a relation with no clauses
	ErrUnsafeHead    = "E203" // head variable not bound by the body
	ErrEmptyName     = "E204" // relation name is empty
	ErrUnknownOutput = "E205" // requested output is not a relation
	ErrEmptyVarName  = "E206" // variable name is empty
)

// ValidationError represents a structural problem in a program.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Relation string `json:"relation,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks p for structural errors.
// Returns all errors found (does not fail-fast), in clause order.
func Validate(p *Program) []ValidationError {
	var errs []ValidationError

	arity := make(map[int]int)
	checkArity := func(field string, pred Predicate) {
		want, seen := arity[pred.Name]
		if !seen {
			arity[pred.Name] = pred.Arity
			return
		}
		if want != pred.Arity {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("relation %q used with arity %d, previously %d", p.Name(pred.Name), pred.Arity, want),
				Code:    ErrArityMismatch,
			})
		}
	}

	for _, id := range p.order {
		rel := p.relations[id]
		start := len(errs)
		for _, c := range rel.Clauses {
			field := fmt.Sprintf("%s[%d]", rel.Name, c.Index)

			// E204: empty relation names
			if strings.TrimSpace(rel.Name) == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "relation name is required and must be non-empty",
					Code:    ErrEmptyName,
				})
			}

			// E201: head arity
			checkArity(field+".head", c.Head)

			bound := make(map[int]bool)
			for i, pred := range c.Body {
				bodyField := fmt.Sprintf("%s.body[%d]", field, i)
				name := p.Name(pred.Name)

				if strings.TrimSpace(name) == "" {
					errs = append(errs, ValidationError{
						Field:   bodyField,
						Message: "relation name is required and must be non-empty",
						Code:    ErrEmptyName,
					})
				} else if _, defined := p.relations[pred.Name]; !defined {
					// E202: body relation has no clauses
					errs = append(errs, ValidationError{
						Field:   bodyField,
						Message: fmt.Sprintf("relation %q has no facts or rules", name),
						Code:    ErrUndefinedBody,
					})
				}

				checkArity(bodyField, pred)
				errs = append(errs, checkVarNames(p, bodyField, pred)...)

				for _, v := range pred.Variables {
					bound[v.Var] = true
				}
			}

			errs = append(errs, checkVarNames(p, field+".head", c.Head)...)

			// E203: every head variable must appear in the body
			for _, v := range c.Head.Variables {
				if bound[v.Var] {
					continue
				}
				msg := fmt.Sprintf("head variable ?%s is not bound by the body", p.Name(v.Var))
				if c.IsFact() {
					msg = fmt.Sprintf("fact contains variable ?%s", p.Name(v.Var))
				}
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.head[%d]", field, v.Pos),
					Message: msg,
					Code:    ErrUnsafeHead,
				})
			}
		}
		for i := start; i < len(errs); i++ {
			errs[i].Relation = rel.Name
		}
	}

	return errs
}

func checkVarNames(p *Program, field string, pred Predicate) []ValidationError {
	var errs []ValidationError
	for _, v := range pred.Variables {
		if p.Name(v.Var) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, v.Pos),
				Message: "variable name is required and must be non-empty",
				Code:    ErrEmptyVarName,
			})
		}
	}
	return errs
}
