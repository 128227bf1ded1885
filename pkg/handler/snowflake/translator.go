package snowflake

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow/util"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/response"
)

// Keys of the single acknowledgement row Snowflake returns for DML.
const (
	keyRowsInserted          = "number of rows inserted"
	keyRowsDeleted           = "number of rows deleted"
	keyRowsUpdated           = "number of rows updated"
	keyMultiJoinedRowsUpdate = "number of multi-joined rows updated"
)

// nativeQuery runs query and translates its result. Execution failures are
// returned as ERROR responses; only connection failures and memory guard
// trips are returned as errors. The caller holds h.mu.
func (h *Handler) nativeQuery(ctx context.Context, query string) (resp *response.Response, err error) {
	needToClose := !h.connected

	conn, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	if needToClose {
		defer func() {
			if derr := h.disconnect(); derr != nil {
				h.logger.Warn("failed to close connection", zap.Error(derr))
			}
		}()
	}
	defer h.releaseMemory()

	resp, err = h.execute(ctx, conn, query)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeMemory) {
			h.stats.memoryGuardTrips.Add(1)
			h.metrics.MemoryGuardTrip()
			return nil, err
		}
		h.logger.Error("error running query",
			zap.String("query", query),
			zap.String("database", h.cfg.Connection[config.ParamDatabase]),
			zap.Error(err))
		h.stats.errors.Add(1)
		return response.NewError(0, err.Error()), nil
	}

	if resp.IsTable() {
		rows := len(resp.Table.Rows)
		h.stats.rowsReturned.Add(int64(rows))
		h.metrics.Rows(rows)
	}
	return resp, nil
}

// execute runs query on conn and builds the response from its cursor.
func (h *Handler) execute(ctx context.Context, conn Conn, query string) (*response.Response, error) {
	cur, err := conn.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cur.Close(); cerr != nil {
			h.logger.Warn("failed to close cursor", zap.Error(cerr))
		}
	}()

	resp, err := h.fetchBatches(ctx, cur)
	if errors.Is(err, ErrBulkFetchNotSupported) {
		h.stats.fallbackFetches.Add(1)
		h.metrics.FallbackFetch()
		return h.fetchRecords(ctx, cur)
	}
	return resp, err
}

// fetchBatches reads the columnar batches of cur into one table.
func (h *Handler) fetchBatches(ctx context.Context, cur Cursor) (*response.Response, error) {
	cols := cur.Columns()
	if hasDuplicateColumns(cols) {
		return nil, ErrBulkFetchNotSupported
	}

	it, err := cur.Batches(ctx)
	if err != nil {
		return nil, err
	}

	guard := &memoryGuard{
		threshold: int64(h.cfg.Memory.GuardRowThreshold),
		fraction:  h.cfg.Memory.AvailableFraction,
		probe:     h.memoryProbe,
	}
	table := response.NewEmptyTable(columnNames(cols))
	var accumulatedBytes int64

	for {
		rec, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		accumulatedBytes += util.TotalRecordSize(rec)
		table.Rows = append(table.Rows, recordRows(rec)...)
		rec.Release()

		est, checked, err := guard.check(ctx, int64(len(table.Rows)), accumulatedBytes, it.TotalRows())
		if err != nil {
			h.logger.Warn("memory estimation skipped", zap.Error(err))
			continue
		}
		if checked && est.exceeded(guard.fraction) {
			h.logger.Error("attempt to get too large dataset",
				zap.Int64("batches_rowcount", est.AccumulatedRows),
				zap.Int64("batches_size_bytes", est.AccumulatedBytes),
				zap.Int64("total_rowcount", est.TotalRows),
				zap.Float64("estimated_size_bytes", est.EstimatedBytes),
				zap.Uint64("available_memory_bytes", est.AvailableBytes))
			return nil, errors.New(errors.ErrorTypeMemory, "not enough memory").
				WithDetail("estimated_bytes", est.EstimatedBytes).
				WithDetail("available_bytes", est.AvailableBytes)
		}
	}

	return response.NewTable(table), nil
}

// fetchRecords reads cur row by row and recognizes DML acknowledgements.
func (h *Handler) fetchRecords(ctx context.Context, cur Cursor) (*response.Response, error) {
	records, err := cur.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) == 1 {
		rec := records[0]
		for _, key := range []string{keyRowsInserted, keyRowsDeleted} {
			if n, ok := affectedRows(rec, key); ok {
				return response.NewOK(n), nil
			}
		}
		if _, ok := rec[keyMultiJoinedRowsUpdate]; ok {
			if n, ok := affectedRows(rec, keyRowsUpdated); ok {
				return response.NewOK(n), nil
			}
		}
	}

	if len(records) == 0 {
		h.logger.Warn("snowflake did not return any data in response")
		return response.NewOKNoCount(), nil
	}

	cols := columnNames(cur.Columns())
	table := response.NewEmptyTable(cols)
	for _, rec := range records {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = rec[c]
		}
		table.Rows = append(table.Rows, row)
	}
	return response.NewTable(table), nil
}

// affectedRows reads an acknowledgement count; Snowflake may send it as a
// number or as text.
func affectedRows(rec Record, key string) (int64, bool) {
	v, ok := rec[key]
	if !ok {
		return 0, false
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// releaseMemory hands pooled memory back when the pool supports it.
func (h *Handler) releaseMemory() {
	if h.pool != nil && h.pool.BackendName() == releasableBackend {
		h.pool.ReleaseUnused()
	}
}
