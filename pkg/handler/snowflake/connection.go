package snowflake

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/metrics"
	"github.com/ajitpratap0/snowlink/pkg/response"
)

const checkQuery = "select 1;"

// Connect opens the warehouse connection unless one is already open.
func (h *Handler) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.connect(ctx)
	return err
}

// Disconnect closes the warehouse connection if one is open.
func (h *Handler) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.disconnect()
}

// IsConnected reports whether the handler holds an open connection.
func (h *Handler) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.connected
}

// CheckConnection verifies that the warehouse answers a trivial query. A
// connection opened only for the check is closed again on success.
func (h *Handler) CheckConnection(ctx context.Context) response.StatusResponse {
	h.mu.Lock()
	defer h.mu.Unlock()

	timer := metrics.NewTimer(metrics.KindCheck)
	needToClose := !h.connected
	status := response.StatusResponse{}

	err := h.tracer.Trace(ctx, "check_connection", func(ctx context.Context) error {
		conn, err := h.connect(ctx)
		if err != nil {
			return err
		}
		cur, err := conn.Execute(ctx, checkQuery)
		if err != nil {
			return err
		}
		return cur.Close()
	})
	if err != nil {
		h.logger.Error("error connecting to snowflake", zap.Error(err))
		status.ErrorMessage = err.Error()
	} else {
		status.Success = true
	}

	if status.Success && needToClose {
		if err := h.disconnect(); err != nil {
			h.logger.Warn("failed to close check connection", zap.Error(err))
		}
	} else if !status.Success && h.connected {
		// The handle is left open; the next connect replaces it.
		h.connected = false
		h.metrics.Connected(false)
	}

	result := "ok"
	if !status.Success {
		result = "error"
	}
	h.metrics.Query(metrics.KindCheck, result, timer.Stop())
	return status
}

// connect returns the open connection, opening it first when needed. The
// caller holds h.mu.
func (h *Handler) connect(ctx context.Context) (Conn, error) {
	if h.connected {
		return h.conn, nil
	}

	if missing := h.cfg.Connection.Missing(); len(missing) > 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"required parameters (%s) must be provided", strings.Join(config.MandatoryParams, ", ")).
			WithDetail("missing", missing)
	}

	openCtx := ctx
	if timeout := h.cfg.Timeouts.Connection; timeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := h.driver.Open(openCtx, h.cfg.Connection.Params())
	h.metrics.Connect(err)
	if err != nil {
		h.logger.Error("error connecting to snowflake",
			zap.String("account", h.cfg.Connection[config.ParamAccount]),
			zap.String("database", h.cfg.Connection[config.ParamDatabase]),
			zap.Error(err))
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, fmt.Sprintf("failed to connect to snowflake account %q", h.cfg.Connection[config.ParamAccount]))
	}

	h.conn = conn
	h.connected = true
	h.stats.connects.Add(1)
	h.metrics.Connected(true)
	h.logger.Debug("connected to snowflake",
		zap.String("account", h.cfg.Connection[config.ParamAccount]),
		zap.String("database", h.cfg.Connection[config.ParamDatabase]))
	return conn, nil
}

// disconnect closes the open connection. The caller holds h.mu.
func (h *Handler) disconnect() error {
	if !h.connected {
		return nil
	}

	err := h.conn.Close()
	h.conn = nil
	h.connected = false
	h.metrics.Connected(false)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close snowflake connection")
	}
	return nil
}
