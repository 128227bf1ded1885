package sqlast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/snowlink/pkg/errors"
)

// Renderer turns a query tree into SQL text.
type Renderer interface {
	// Render renders node. With allowFallback, sub-trees that cannot be
	// rendered strictly are rendered best-effort instead of failing.
	Render(node Node, allowFallback bool) (string, error)
}

// SnowflakeRenderer renders trees in the Snowflake SQL dialect.
type SnowflakeRenderer struct{}

// NewSnowflakeRenderer returns the Snowflake dialect renderer.
func NewSnowflakeRenderer() *SnowflakeRenderer {
	return &SnowflakeRenderer{}
}

// Render implements Renderer.
func (r *SnowflakeRenderer) Render(node Node, allowFallback bool) (string, error) {
	if node == nil {
		return "", errors.New(errors.ErrorTypeValidation, "cannot render a nil query")
	}
	w := &writer{fallback: allowFallback}
	w.node(node)
	if w.err != nil {
		return "", w.err
	}
	return w.b.String(), nil
}

type writer struct {
	b        strings.Builder
	fallback bool
	err      error
}

func (w *writer) str(s string) { w.b.WriteString(s) }

func (w *writer) fail(n Node) {
	if w.fallback {
		if s, ok := n.(fmt.Stringer); ok {
			w.str(s.String())
			return
		}
	}
	if w.err == nil {
		w.err = errors.New(errors.ErrorTypeCapability, "cannot render node "+Describe(n))
	}
}

func (w *writer) node(n Node) {
	switch v := n.(type) {
	case *Select:
		w.selectStmt(v)
	case *Insert:
		w.insertStmt(v)
	case *Update:
		w.updateStmt(v)
	case *Delete:
		w.str("DELETE FROM ")
		w.ident(v.Table)
		w.where(v.Where)
	case *Identifier:
		w.ident(v)
	case *Star:
		w.str("*")
	case *Constant:
		w.constant(v)
	case *Function:
		w.str(strings.ToUpper(v.Name))
		w.str("(")
		if v.Distinct {
			w.str("DISTINCT ")
		}
		w.list(v.Args)
		w.str(")")
	case *BinaryOperation:
		w.str("(")
		w.node(v.Left)
		w.str(" ")
		w.str(strings.ToUpper(v.Op))
		w.str(" ")
		w.node(v.Right)
		w.str(")")
	case *Join:
		w.fromItem(v.Left)
		w.str(" ")
		joinType := strings.ToUpper(strings.TrimSpace(v.Type))
		if joinType == "" {
			joinType = "JOIN"
		}
		w.str(joinType)
		w.str(" ")
		w.fromItem(v.Right)
		if v.Condition != nil {
			w.str(" ON ")
			w.node(v.Condition)
		}
	case *Raw:
		w.str(v.SQL)
	default:
		w.fail(n)
	}
}

func (w *writer) selectStmt(s *Select) {
	w.str("SELECT ")
	if s.Distinct {
		w.str("DISTINCT ")
	}
	if len(s.Targets) == 0 {
		w.str("*")
	}
	for i, t := range s.Targets {
		if i > 0 {
			w.str(", ")
		}
		w.node(t)
		if a, ok := t.(Aliased); ok && a.GetAlias() != nil {
			w.str(" AS ")
			w.ident(a.GetAlias())
		}
	}
	if s.From != nil {
		w.str(" FROM ")
		w.fromItem(s.From)
	}
	w.where(s.Where)
	if len(s.GroupBy) > 0 {
		w.str(" GROUP BY ")
		w.list(s.GroupBy)
	}
	if s.Having != nil {
		w.str(" HAVING ")
		w.node(s.Having)
	}
	if len(s.OrderBy) > 0 {
		w.str(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				w.str(", ")
			}
			w.node(o.Field)
			if o.Desc {
				w.str(" DESC")
			}
		}
	}
	if s.Limit != nil {
		w.str(" LIMIT ")
		w.str(strconv.FormatInt(*s.Limit, 10))
	}
	if s.Offset != nil {
		w.str(" OFFSET ")
		w.str(strconv.FormatInt(*s.Offset, 10))
	}
}

// fromItem renders a table reference: tables and subqueries keep their
// aliases, joins recurse into both operands.
func (w *writer) fromItem(n Node) {
	switch v := n.(type) {
	case *Select:
		w.str("(")
		w.selectStmt(v)
		w.str(")")
		if v.Alias != nil {
			w.str(" AS ")
			w.ident(v.Alias)
		}
	case *Identifier:
		w.ident(v)
		if v.Alias != nil {
			w.str(" AS ")
			w.ident(v.Alias)
		}
	default:
		w.node(n)
	}
}

func (w *writer) insertStmt(s *Insert) {
	w.str("INSERT INTO ")
	w.ident(s.Table)
	if len(s.Columns) > 0 {
		w.str(" (")
		for i, c := range s.Columns {
			if i > 0 {
				w.str(", ")
			}
			w.ident(c)
		}
		w.str(")")
	}
	w.str(" VALUES ")
	for i, row := range s.Values {
		if i > 0 {
			w.str(", ")
		}
		w.str("(")
		w.list(row)
		w.str(")")
	}
}

func (w *writer) updateStmt(s *Update) {
	w.str("UPDATE ")
	w.ident(s.Table)
	w.str(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			w.str(", ")
		}
		w.ident(a.Column)
		w.str(" = ")
		w.node(a.Value)
	}
	w.where(s.Where)
}

func (w *writer) where(n Node) {
	if n == nil {
		return
	}
	w.str(" WHERE ")
	w.node(n)
}

func (w *writer) list(nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			w.str(", ")
		}
		w.node(n)
	}
}

func (w *writer) ident(id *Identifier) {
	if id == nil {
		if w.err == nil {
			w.err = errors.New(errors.ErrorTypeValidation, "missing identifier")
		}
		return
	}
	for i, part := range id.Parts {
		if i > 0 {
			w.str(".")
		}
		if part == "*" {
			w.str(part)
			continue
		}
		if i < len(id.Quoted) && id.Quoted[i] {
			w.str(QuoteIdentifier(part))
		} else {
			w.str(part)
		}
	}
}

func (w *writer) constant(c *Constant) {
	switch v := c.Value.(type) {
	case nil:
		w.str("NULL")
	case string:
		w.str(QuoteString(v))
	case bool:
		if v {
			w.str("TRUE")
		} else {
			w.str("FALSE")
		}
	case int:
		w.str(strconv.Itoa(v))
	case int64:
		w.str(strconv.FormatInt(v, 10))
	case float64:
		w.str(strconv.FormatFloat(v, 'g', -1, 64))
	case time.Time:
		w.str("TIMESTAMP_NTZ ")
		w.str(QuoteString(v.Format("2006-01-02 15:04:05.999999999")))
	default:
		if w.fallback {
			w.str(QuoteString(fmt.Sprint(v)))
			return
		}
		if w.err == nil {
			w.err = errors.Newf(errors.ErrorTypeCapability, "cannot render constant of type %T", v)
		}
	}
}

// QuoteIdentifier double-quotes an identifier, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString single-quotes a string literal, escaping quotes and backslashes.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
