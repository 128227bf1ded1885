package snowflake

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/response"
)

var numberColumn = []ColumnDescription{{Name: "N", TypeName: "FIXED"}}

func TestNativeQuery_ConcatenatesBatchesInOrder(t *testing.T) {
	probes := 0
	h, d := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{
		columns: numberColumn,
		batches: [][][]any{intColumn(0, 600), intColumn(600, 600), intColumn(1200, 600)},
	}}, WithMemoryProbe(func(context.Context) (uint64, error) {
		probes++
		return 1 << 40, nil
	}))

	resp, err := h.NativeQuery(context.Background(), "select n from big")
	require.NoError(t, err)
	require.True(t, resp.IsTable())

	assert.Equal(t, []string{"N"}, resp.Table.Columns)
	require.Len(t, resp.Table.Rows, 1800)
	for i, row := range resp.Table.Rows {
		require.Equal(t, int64(i), row[0])
	}
	assert.Equal(t, 1, probes, "memory is estimated once")
	assert.Equal(t, 1, d.conn.closed, "connection opened for the call is closed")
	assert.EqualValues(t, 1800, h.Stats().RowsReturned)
}

func TestNativeQuery_MemoryGuardTrips(t *testing.T) {
	h, d := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{
		columns: numberColumn,
		batches: [][][]any{intColumn(0, 600), intColumn(600, 600), intColumn(1200, 600)},
		// the warehouse reports far more rows than the first batches hold
		totalRows: 10_000_000,
	}}, WithMemoryProbe(fixedMemory(64<<10)))

	resp, err := h.NativeQuery(context.Background(), "select n from huge")

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMemory))
	assert.Equal(t, 1, d.conn.closed)
	assert.EqualValues(t, 1, h.Stats().MemoryGuardTrips)
}

func TestNativeQuery_SmallResultSkipsGuard(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{
		columns:   numberColumn,
		batches:   [][][]any{intColumn(0, 10)},
		totalRows: 10_000_000,
	}}, WithMemoryProbe(fixedMemory(1)))

	resp, err := h.NativeQuery(context.Background(), "select n from t limit 10")
	require.NoError(t, err)
	assert.Len(t, resp.Table.Rows, 10)
}

func TestNativeQuery_ZeroBatches(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{
		columns: []ColumnDescription{{Name: "ID"}, {Name: "NAME"}},
		batches: [][][]any{},
	}})

	resp, err := h.NativeQuery(context.Background(), "select id, name from empty")
	require.NoError(t, err)
	require.True(t, resp.IsTable())
	assert.Equal(t, []string{"ID", "NAME"}, resp.Table.Columns)
	assert.Empty(t, resp.Table.Rows)
}

func TestNativeQuery_Fallback(t *testing.T) {
	status := []ColumnDescription{{Name: "status"}}

	tests := []struct {
		name      string
		records   []Record
		columns   []ColumnDescription
		wantType  response.Type
		wantCount *int64
		wantRows  [][]any
	}{
		{
			name:      "inserted",
			records:   []Record{{keyRowsInserted: int64(7)}},
			wantType:  response.TypeOK,
			wantCount: ptr(7),
		},
		{
			name:      "deleted as text",
			records:   []Record{{keyRowsDeleted: "4"}},
			wantType:  response.TypeOK,
			wantCount: ptr(4),
		},
		{
			name:      "updated",
			records:   []Record{{keyRowsUpdated: int64(3), keyMultiJoinedRowsUpdate: int64(0)}},
			wantType:  response.TypeOK,
			wantCount: ptr(3),
		},
		{
			name:     "updated without multi-joined count is a table",
			records:  []Record{{keyRowsUpdated: int64(3)}},
			columns:  []ColumnDescription{{Name: keyRowsUpdated}},
			wantType: response.TypeTable,
			wantRows: [][]any{{int64(3)}},
		},
		{
			name:     "other rows",
			records:  []Record{{"status": "Table T successfully created."}},
			columns:  status,
			wantType: response.TypeTable,
			wantRows: [][]any{{"Table T successfully created."}},
		},
		{
			name:     "several acknowledgement rows are a table",
			records:  []Record{{keyRowsInserted: int64(1)}, {keyRowsInserted: int64(2)}},
			columns:  []ColumnDescription{{Name: keyRowsInserted}},
			wantType: response.TypeTable,
			wantRows: [][]any{{int64(1)}, {int64(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{
				columns: tt.columns,
				records: tt.records,
			}})

			resp, err := h.NativeQuery(context.Background(), "dml")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, resp.Type)
			if tt.wantType == response.TypeOK {
				require.NotNil(t, resp.AffectedRows)
				assert.Equal(t, *tt.wantCount, *resp.AffectedRows)
			} else {
				assert.Equal(t, tt.wantRows, resp.Table.Rows)
			}
			assert.EqualValues(t, 1, h.Stats().FallbackFetches)
		})
	}
}

func TestNativeQuery_EmptyFallbackWarns(t *testing.T) {
	logs := observeLogs(t)
	h, _ := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{records: []Record{}}})

	resp, err := h.NativeQuery(context.Background(), "alter session set x = 1")
	require.NoError(t, err)

	assert.Equal(t, response.TypeOK, resp.Type)
	assert.Nil(t, resp.AffectedRows)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("snowflake did not return any data in response").Len())
}

func TestNativeQuery_DuplicateColumnsUseFallback(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDriverScript{fallback: &fakeResult{
		columns: []ColumnDescription{{Name: "A"}, {Name: "A"}},
		batches: [][][]any{{{int64(1), int64(2)}}},
		records: []Record{{"A": int64(2)}},
	}})

	resp, err := h.NativeQuery(context.Background(), "select 1 as a, 2 as a")
	require.NoError(t, err)
	require.True(t, resp.IsTable())
	assert.Equal(t, []string{"A", "A"}, resp.Table.Columns)
	assert.Equal(t, [][]any{{int64(2), int64(2)}}, resp.Table.Rows)
}

func TestNativeQuery_ErrorsBecomeErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		script *fakeDriverScript
		want   string
	}{
		{
			name:   "execute",
			script: &fakeDriverScript{execErr: stderrors.New("SQL compilation error: Object 'X' does not exist")},
			want:   "SQL compilation error: Object 'X' does not exist",
		},
		{
			name:   "batches",
			script: &fakeDriverScript{fallback: &fakeResult{columns: numberColumn, batchesErr: stderrors.New("chunk download failed")}},
			want:   "chunk download failed",
		},
		{
			name: "mid-fetch",
			script: &fakeDriverScript{fallback: &fakeResult{
				columns: numberColumn,
				batches: [][][]any{intColumn(0, 1), intColumn(1, 1)},
				nextErr: stderrors.New("connection reset"),
			}},
			want: "connection reset",
		},
		{
			name:   "fallback fetch",
			script: &fakeDriverScript{fallback: &fakeResult{fetchErr: stderrors.New("row decode failed")}},
			want:   "row decode failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observeLogs(t)
			h, d := newTestHandler(t, tt.script)

			resp, err := h.NativeQuery(context.Background(), "select x")
			require.NoError(t, err)
			require.True(t, resp.IsError())
			assert.Equal(t, 0, resp.ErrorCode)
			assert.Equal(t, tt.want, resp.ErrorMessage)
			assert.Equal(t, 1, d.conn.closed)

			entries := logs.FilterMessage("error running query").All()
			require.Len(t, entries, 1)
			assert.Equal(t, "select x", entries[0].ContextMap()["query"])
			assert.Equal(t, "ANALYTICS", entries[0].ContextMap()["database"])
		})
	}
}

func TestNativeQuery_ConnectionErrorPropagates(t *testing.T) {
	h, d := newTestHandler(t, selectOne())
	d.openErr = stderrors.New("authentication failed")

	resp, err := h.NativeQuery(context.Background(), "select 1")
	assert.Nil(t, resp)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestNativeQuery_KeepsExistingConnection(t *testing.T) {
	h, d := newTestHandler(t, selectOne())
	require.NoError(t, h.Connect(context.Background()))

	_, err := h.NativeQuery(context.Background(), "select 1")
	require.NoError(t, err)
	_, err = h.NativeQuery(context.Background(), "select 1")
	require.NoError(t, err)

	assert.Equal(t, 1, d.opens)
	assert.Zero(t, d.conn.closed)
	assert.True(t, h.IsConnected())
}

type countingPool struct {
	backend  string
	releases int
}

func (p *countingPool) BackendName() string { return p.backend }
func (p *countingPool) ReleaseUnused()      { p.releases++ }

func TestNativeQuery_ReleasesPool(t *testing.T) {
	t.Run("releasable backend", func(t *testing.T) {
		pool := &countingPool{backend: releasableBackend}
		h, _ := newTestHandler(t, &fakeDriverScript{execErr: stderrors.New("boom")}, WithMemoryPool(pool))

		_, err := h.NativeQuery(context.Background(), "select 1")
		require.NoError(t, err)
		_, err = h.NativeQuery(context.Background(), "select 1")
		require.NoError(t, err)
		assert.Equal(t, 2, pool.releases, "released on error responses too")
	})

	t.Run("other backend", func(t *testing.T) {
		pool := &countingPool{backend: "jemalloc"}
		h, _ := newTestHandler(t, selectOne(), WithMemoryPool(pool))

		_, err := h.NativeQuery(context.Background(), "select 1")
		require.NoError(t, err)
		assert.Zero(t, pool.releases)
	})

	t.Run("absent pool", func(t *testing.T) {
		h, _ := newTestHandler(t, selectOne())
		_, err := h.NativeQuery(context.Background(), "select 1")
		require.NoError(t, err)
	})
}

func ptr(n int64) *int64 { return &n }
