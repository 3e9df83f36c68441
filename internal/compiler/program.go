package compiler

import (
	"slices"
	"strings"

	"github.com/roach88/flowlog/internal/ir"
)

// Program is a set of named relations, each defined by one or more
// clauses. A fact is a clause with an empty body.
//
// Names of relations and variables are interned into dense ids in
// first-use order. Both share one table; a relation and a variable with the
// same spelling get the same id, which is harmless because they are never
// compared with each other. Variable names are scoped to one clause.
//
// A Program is built with Clause and Fact and is read-only afterwards.
// It is not safe for concurrent mutation.
type Program struct {
	names     []string
	ids       map[string]int
	relations map[int]*Relation
	order     []int // relation ids in order of first definition
}

// Relation is the ordered list of clauses sharing one head name.
type Relation struct {
	ID      int
	Name    string
	Clauses []Clause
}

// Clause is head :- body. Index is the position within its relation.
type Clause struct {
	Index int
	Head  Predicate
	Body  []Predicate
}

// IsFact reports whether the clause has an empty body.
func (c Clause) IsFact() bool { return len(c.Body) == 0 }

// Predicate is one atom with its argument positions split into literal
// constants and variables. Together the positions of Constants and
// Variables cover 0..Arity-1 exactly once.
type Predicate struct {
	Name      int
	Arity     int
	Constants []Constant
	Variables []Variable
}

// Constant pins argument Pos to a literal.
type Constant struct {
	Pos   int
	Value ir.Datum
}

// Variable binds argument Pos to the interned variable Var.
type Variable struct {
	Pos int
	Var int
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		ids:       make(map[string]int),
		relations: make(map[int]*Relation),
	}
}

func (p *Program) intern(name string) int {
	if id, ok := p.ids[name]; ok {
		return id
	}
	id := len(p.names)
	p.names = append(p.names, name)
	p.ids[name] = id
	return id
}

// Name returns the spelling of interned id.
func (p *Program) Name(id int) string {
	if id < 0 || id >= len(p.names) {
		return ""
	}
	return p.names[id]
}

// Clause adds head :- body to the relation named by head. Clauses
// accumulate: calling Clause twice with the same head name defines the
// relation as the union of both.
//
// Clause does not check the clause; use Validate (Compile does this).
func (p *Program) Clause(head ir.Atom, body ...ir.Atom) {
	c := Clause{Head: p.predicate(head)}
	for _, a := range body {
		c.Body = append(c.Body, p.predicate(a))
	}

	rel, ok := p.relations[c.Head.Name]
	if !ok {
		rel = &Relation{ID: c.Head.Name, Name: head.Name}
		p.relations[rel.ID] = rel
		p.order = append(p.order, rel.ID)
	}
	c.Index = len(rel.Clauses)
	rel.Clauses = append(rel.Clauses, c)
}

// Fact adds the ground fact name(values...).
func (p *Program) Fact(name string, values ...ir.Datum) {
	args := make([]ir.Term, len(values))
	for i, v := range values {
		args[i] = v
	}
	p.Clause(ir.Atom{Name: name, Args: args})
}

func (p *Program) predicate(a ir.Atom) Predicate {
	pred := Predicate{Name: p.intern(a.Name), Arity: len(a.Args)}
	for pos, arg := range a.Args {
		switch t := arg.(type) {
		case ir.Var:
			pred.Variables = append(pred.Variables, Variable{Pos: pos, Var: p.intern(string(t))})
		case ir.Datum:
			pred.Constants = append(pred.Constants, Constant{Pos: pos, Value: t})
		}
	}
	return pred
}

// Atom rebuilds the source atom of pred.
func (p *Program) Atom(pred Predicate) ir.Atom {
	args := make([]ir.Term, pred.Arity)
	for _, c := range pred.Constants {
		args[c.Pos] = c.Value
	}
	for _, v := range pred.Variables {
		args[v.Pos] = ir.Var(p.Name(v.Var))
	}
	return ir.Atom{Name: p.Name(pred.Name), Args: args}
}

// ClauseString formats c as "head :- body1, body2." or "head." for facts.
func (p *Program) ClauseString(c Clause) string {
	var b strings.Builder
	b.WriteString(p.Atom(c.Head).String())
	for i, pred := range c.Body {
		if i == 0 {
			b.WriteString(" :- ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(p.Atom(pred).String())
	}
	b.WriteByte('.')
	return b.String()
}

// Relations returns the defined relation names in definition order.
func (p *Program) Relations() []string {
	out := make([]string, len(p.order))
	for i, id := range p.order {
		out[i] = p.relations[id].Name
	}
	return out
}

// Relation returns the relation called name.
func (p *Program) Relation(name string) (*Relation, bool) {
	id, ok := p.ids[name]
	if !ok {
		return nil, false
	}
	rel, ok := p.relations[id]
	return rel, ok
}

// sortedRelations returns relations ordered by interned id, the order in
// which Compile declares them.
func (p *Program) sortedRelations() []*Relation {
	ids := slices.Clone(p.order)
	slices.Sort(ids)
	out := make([]*Relation, len(ids))
	for i, id := range ids {
		out[i] = p.relations[id]
	}
	return out
}

// Hash returns a content hash of the program: every clause, formatted,
// in relation definition order. Two programs built from the same clauses
// in the same order hash the same.
func (p *Program) Hash() (string, error) {
	var clauses []string
	for _, id := range p.order {
		for _, c := range p.relations[id].Clauses {
			clauses = append(clauses, p.ClauseString(c))
		}
	}
	if clauses == nil {
		clauses = []string{}
	}
	return ir.Hash(ir.DomainProgram, clauses)
}
