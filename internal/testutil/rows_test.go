package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/flowlog/internal/ir"
)

func TestRows(t *testing.T) {
	rows := Rows(t, `[1, 2]`, `["a", true]`)
	assert.Equal(t, []ir.Row{ir.Ints(1, 2), {ir.String("a"), ir.Bool(true)}}, rows)
}

func TestSorted(t *testing.T) {
	in := []ir.Row{ir.Ints(3), ir.Ints(1), ir.Ints(2)}
	out := Sorted(in)

	assert.Equal(t, []ir.Row{ir.Ints(1), ir.Ints(2), ir.Ints(3)}, out)
	assert.Equal(t, ir.Ints(3), in[0], "input is not modified")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"(1, 2)", `("x")`}, Strings([]ir.Row{ir.Ints(1, 2), {ir.String("x")}}))
}
