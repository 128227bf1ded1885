// Package export writes query results to files and object stores.
//
// Basic usage:
//
//	exp := export.New()
//	res, err := exp.Export(ctx, resp.Table, export.Options{
//	    Format:      export.FormatJSONL,
//	    Compression: compression.Zstd,
//	    Destination: "s3://analytics-dumps/orders.jsonl.zst",
//	})
package export

import (
	"context"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/compression"
	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/logger"
	"github.com/ajitpratap0/snowlink/pkg/response"
)

// Options selects how and where a table is exported.
type Options struct {
	Format      Format
	Compression compression.Algorithm
	Level       compression.Level
	Destination string

	// Region overrides the AWS region for s3:// destinations.
	Region string
	// CredentialsFile is a service account key for gs:// destinations.
	CredentialsFile string
}

// Result describes a finished export.
type Result struct {
	Destination string `json:"destination"`
	Format      Format `json:"format"`
	Compression string `json:"compression"`
	Rows        int    `json:"rows"`
	Bytes       int64  `json:"bytes"`
}

// Exporter writes tables to their destination.
type Exporter struct {
	s3  S3Uploader
	gcs GCSOpener

	logger *zap.Logger
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithS3Uploader replaces the uploader used for s3:// destinations.
func WithS3Uploader(u S3Uploader) Option {
	return func(e *Exporter) { e.s3 = u }
}

// WithGCSOpener replaces the opener used for gs:// destinations.
func WithGCSOpener(o GCSOpener) Option {
	return func(e *Exporter) { e.gcs = o }
}

// New creates an exporter. Cloud clients are created on first use.
func New(opts ...Option) *Exporter {
	e := &Exporter{logger: logger.With(zap.String("component", "exporter"))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export encodes t and writes it to opts.Destination.
func (e *Exporter) Export(ctx context.Context, t *response.Table, opts Options) (*Result, error) {
	if t == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "nothing to export: result is not a table")
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid export format")
	}
	opts.Format = format
	loc, err := ParseLocation(opts.Destination)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid export destination")
	}
	if opts.Level == 0 {
		opts.Level = compression.Default
	}

	dst, closeClient, err := e.open(ctx, loc, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open export destination").
			WithDetail("destination", loc.String())
	}
	if closeClient != nil {
		defer func() { _ = closeClient() }()
	}

	counter := &countingWriter{w: dst}
	cw, err := compression.NewWriter(counter, opts.Compression, opts.Level)
	if err != nil {
		abort(dst, err)
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid export compression")
	}

	if err := Encode(cw, t, opts.Format); err != nil {
		_ = cw.Close()
		abort(dst, err)
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode export")
	}
	if err := cw.Close(); err != nil {
		abort(dst, err)
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to flush export")
	}
	if err := dst.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to finish export").
			WithDetail("destination", loc.String())
	}

	compressionName := string(opts.Compression)
	if compressionName == "" {
		compressionName = string(compression.None)
	}
	res := &Result{
		Destination: loc.String(),
		Format:      opts.Format,
		Compression: compressionName,
		Rows:        len(t.Rows),
		Bytes:       counter.n.Load(),
	}
	e.logger.Info("export completed",
		zap.String("destination", res.Destination),
		zap.String("format", string(res.Format)),
		zap.Int("rows", res.Rows),
		zap.Int64("bytes", res.Bytes))
	return res, nil
}

func (e *Exporter) open(ctx context.Context, loc Location, opts Options) (io.WriteCloser, func() error, error) {
	switch loc.Scheme {
	case SchemeS3:
		if e.s3 == nil {
			up, err := newS3Uploader(ctx, opts.Region)
			if err != nil {
				return nil, nil, err
			}
			e.s3 = up
		}
		return openS3(ctx, e.s3, loc, contentType(opts)), nil, nil
	case SchemeGCS:
		if e.gcs != nil {
			w, err := openGCS(ctx, e.gcs, loc)
			return w, nil, err
		}
		opener, closeClient, err := newGCSOpener(ctx, opts.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		w, err := openGCS(ctx, opener, loc)
		if err != nil {
			_ = closeClient()
			return nil, nil, err
		}
		return w, closeClient, nil
	default:
		w, err := openFile(loc.Key)
		return w, nil, err
	}
}

func contentType(opts Options) string {
	if opts.Compression != "" && opts.Compression != compression.None {
		return "application/octet-stream"
	}
	switch opts.Format {
	case FormatCSV:
		return "text/csv"
	case FormatJSONL:
		return "application/x-ndjson"
	case FormatArrow:
		return "application/vnd.apache.arrow.file"
	case FormatAvro:
		return "application/avro"
	default:
		return "application/octet-stream"
	}
}

// abort discards dst after a failure. Every sink opened by Exporter supports
// Abort, so nothing partial is left behind.
func abort(dst io.WriteCloser, cause error) {
	if a, ok := dst.(interface{ Abort(error) }); ok {
		a.Abort(cause)
		return
	}
	_ = dst.Close()
}

type countingWriter struct {
	w io.Writer
	n atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}
