// Package sqlast is the host engine's query representation as seen by
// handlers, together with the renderer that turns it into warehouse SQL.
package sqlast

import (
	"fmt"
	"strings"
)

// Node is any element of a query tree.
type Node interface {
	node()
}

// Aliased is implemented by target expressions that may carry an alias.
type Aliased interface {
	Node
	GetAlias() *Identifier
}

// Identifier is a possibly qualified name. Quoted has one flag per part and
// records whether that part was written with double quotes.
type Identifier struct {
	Parts  []string
	Quoted []bool
	Alias  *Identifier
}

// NewIdentifier builds an unquoted identifier from dotted parts.
func NewIdentifier(parts ...string) *Identifier {
	return &Identifier{Parts: parts, Quoted: make([]bool, len(parts))}
}

// NewQuotedIdentifier builds an identifier whose every part is quoted.
func NewQuotedIdentifier(parts ...string) *Identifier {
	q := make([]bool, len(parts))
	for i := range q {
		q[i] = true
	}
	return &Identifier{Parts: parts, Quoted: q}
}

// As sets the alias and returns the identifier.
func (i *Identifier) As(alias *Identifier) *Identifier {
	i.Alias = alias
	return i
}

// GetAlias implements Aliased.
func (i *Identifier) GetAlias() *Identifier { return i.Alias }

// Last returns the final part of the name.
func (i *Identifier) Last() string {
	if len(i.Parts) == 0 {
		return ""
	}
	return i.Parts[len(i.Parts)-1]
}

// LastQuoted reports whether the final part was quoted.
func (i *Identifier) LastQuoted() bool {
	if len(i.Quoted) == 0 || len(i.Quoted) != len(i.Parts) {
		return false
	}
	return i.Quoted[len(i.Quoted)-1]
}

// String implements fmt.Stringer.
func (i *Identifier) String() string {
	return strings.Join(i.Parts, ".")
}

// Star is the `*` target.
type Star struct{}

// Constant is a literal value.
type Constant struct {
	Value any
	Alias *Identifier
}

// GetAlias implements Aliased.
func (c *Constant) GetAlias() *Identifier { return c.Alias }

// Function is a function call.
type Function struct {
	Name     string
	Args     []Node
	Distinct bool
	Alias    *Identifier
}

// GetAlias implements Aliased.
func (f *Function) GetAlias() *Identifier { return f.Alias }

// BinaryOperation is `left op right`.
type BinaryOperation struct {
	Op    string
	Left  Node
	Right Node
	Alias *Identifier
}

// GetAlias implements Aliased.
func (b *BinaryOperation) GetAlias() *Identifier { return b.Alias }

// OrderBy is a single ORDER BY element.
type OrderBy struct {
	Field Node
	Desc  bool
}

// Join combines two table expressions.
type Join struct {
	Type      string
	Left      Node
	Right     Node
	Condition Node
}

// Select is a SELECT statement.
type Select struct {
	Distinct bool
	Targets  []Node
	From     Node
	Where    Node
	GroupBy  []Node
	Having   Node
	OrderBy  []OrderBy
	Limit    *int64
	Offset   *int64

	// Alias names the statement when it is used as a subquery in FROM.
	Alias *Identifier
}

// Insert is an INSERT ... VALUES statement.
type Insert struct {
	Table   *Identifier
	Columns []*Identifier
	Values  [][]Node
}

// Assignment is one `column = value` pair of an UPDATE.
type Assignment struct {
	Column *Identifier
	Value  Node
}

// Update is an UPDATE statement.
type Update struct {
	Table *Identifier
	Set   []Assignment
	Where Node
}

// Delete is a DELETE statement.
type Delete struct {
	Table *Identifier
	Where Node
}

// Raw is pre-rendered SQL text embedded in a tree.
type Raw struct {
	SQL string
}

// String implements fmt.Stringer.
func (r *Raw) String() string { return r.SQL }

func (*Identifier) node()      {}
func (*Star) node()            {}
func (*Constant) node()        {}
func (*Function) node()        {}
func (*BinaryOperation) node() {}
func (*Join) node()            {}
func (*Select) node()          {}
func (*Insert) node()          {}
func (*Update) node()          {}
func (*Delete) node()          {}
func (*Raw) node()             {}

// Int64 returns a pointer to n, for Limit and Offset.
func Int64(n int64) *int64 { return &n }

// Describe returns a short human description of a node for logs.
func Describe(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", n)
}
