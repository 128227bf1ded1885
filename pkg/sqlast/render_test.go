package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaque is a node the renderer has no case for.
type opaque struct{ text string }

func (*opaque) node()            {}
func (o *opaque) String() string { return o.text }

func TestSnowflakeRenderer_Select(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{
			name: "constant",
			node: &Select{Targets: []Node{&Constant{Value: 1}}},
			want: "SELECT 1",
		},
		{
			name: "unquoted and quoted targets",
			node: &Select{
				Targets: []Node{
					NewIdentifier("FOO"),
					NewQuotedIdentifier("Bar"),
					NewIdentifier("baz").As(NewQuotedIdentifier("BAZ")),
				},
				From: NewIdentifier("DB", "PUBLIC", "T"),
			},
			want: `SELECT FOO, "Bar", baz AS "BAZ" FROM DB.PUBLIC.T`,
		},
		{
			name: "where order limit",
			node: &Select{
				Targets: []Node{&Star{}},
				From:    NewIdentifier("orders"),
				Where: &BinaryOperation{
					Op:    "and",
					Left:  &BinaryOperation{Op: ">", Left: NewIdentifier("amount"), Right: &Constant{Value: int64(10)}},
					Right: &BinaryOperation{Op: "=", Left: NewIdentifier("status"), Right: &Constant{Value: "it's"}},
				},
				OrderBy: []OrderBy{{Field: NewIdentifier("amount"), Desc: true}},
				Limit:   Int64(5),
			},
			want: `SELECT * FROM orders WHERE ((amount > 10) AND (status = 'it''s')) ORDER BY amount DESC LIMIT 5`,
		},
		{
			name: "aggregate with group by",
			node: &Select{
				Targets: []Node{
					NewIdentifier("region"),
					&Function{Name: "count", Args: []Node{&Star{}}, Alias: NewIdentifier("n")},
				},
				From:    NewIdentifier("sales"),
				GroupBy: []Node{NewIdentifier("region")},
			},
			want: `SELECT region, COUNT(*) AS n FROM sales GROUP BY region`,
		},
		{
			name: "subquery",
			node: &Select{
				Targets: []Node{&Star{}},
				From:    &Select{Targets: []Node{&Constant{Value: nil, Alias: NewIdentifier("x")}}},
			},
			want: `SELECT * FROM (SELECT NULL AS x)`,
		},
		{
			name: "aliased join",
			node: &Select{
				Targets: []Node{NewIdentifier("a", "ID"), NewIdentifier("b", "NAME")},
				From: &Join{
					Left:  NewIdentifier("T1").As(NewIdentifier("a")),
					Right: NewIdentifier("T2").As(NewIdentifier("b")),
					Condition: &BinaryOperation{
						Op:    "=",
						Left:  NewIdentifier("a", "ID"),
						Right: NewIdentifier("b", "ID"),
					},
				},
			},
			want: `SELECT a.ID, b.NAME FROM T1 AS a JOIN T2 AS b ON (a.ID = b.ID)`,
		},
		{
			name: "nested join with aliased subquery",
			node: &Select{
				Targets: []Node{&Star{}},
				From: &Join{
					Type: "left join",
					Left: &Join{
						Left:      NewIdentifier("orders").As(NewIdentifier("o")),
						Right:     NewIdentifier("customers").As(NewIdentifier("c")),
						Condition: &BinaryOperation{Op: "=", Left: NewIdentifier("o", "CUSTOMER_ID"), Right: NewIdentifier("c", "ID")},
					},
					Right: &Select{
						Targets: []Node{NewIdentifier("ORDER_ID")},
						From:    NewIdentifier("refunds"),
						Alias:   NewIdentifier("r"),
					},
					Condition: &BinaryOperation{Op: "=", Left: NewIdentifier("o", "ID"), Right: NewIdentifier("r", "ORDER_ID")},
				},
			},
			want: `SELECT * FROM orders AS o JOIN customers AS c ON (o.CUSTOMER_ID = c.ID) LEFT JOIN (SELECT ORDER_ID FROM refunds) AS r ON (o.ID = r.ORDER_ID)`,
		},
	}

	r := NewSnowflakeRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.node, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnowflakeRenderer_DML(t *testing.T) {
	r := NewSnowflakeRenderer()

	got, err := r.Render(&Insert{
		Table:   NewIdentifier("t"),
		Columns: []*Identifier{NewIdentifier("a"), NewQuotedIdentifier("B")},
		Values:  [][]Node{{&Constant{Value: 1}, &Constant{Value: true}}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO t (a, "B") VALUES (1, TRUE)`, got)

	got, err = r.Render(&Update{
		Table: NewIdentifier("t"),
		Set:   []Assignment{{Column: NewIdentifier("a"), Value: &Constant{Value: 2.5}}},
		Where: &BinaryOperation{Op: "=", Left: NewIdentifier("id"), Right: &Constant{Value: 1}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE t SET a = 2.5 WHERE (id = 1)`, got)

	got, err = r.Render(&Delete{Table: NewIdentifier("t")}, false)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM t`, got)
}

func TestSnowflakeRenderer_Fallback(t *testing.T) {
	r := NewSnowflakeRenderer()
	node := &Select{Targets: []Node{&opaque{text: "CURRENT_TIMESTAMP()"}}}

	_, err := r.Render(node, false)
	assert.Error(t, err)

	got, err := r.Render(node, true)
	require.NoError(t, err)
	assert.Equal(t, "SELECT CURRENT_TIMESTAMP()", got)
}

func TestSnowflakeRenderer_Nil(t *testing.T) {
	_, err := NewSnowflakeRenderer().Render(nil, true)
	assert.Error(t, err)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`))
	assert.Equal(t, `'a\\b''c'`, QuoteString(`a\b'c`))
}

func TestIdentifier_LastQuoted(t *testing.T) {
	id := &Identifier{Parts: []string{"s", "T"}, Quoted: []bool{false, true}}
	assert.Equal(t, "T", id.Last())
	assert.True(t, id.LastQuoted())
	assert.False(t, NewIdentifier("x").LastQuoted())
	assert.False(t, (&Identifier{Parts: []string{"x"}}).LastQuoted())
}
