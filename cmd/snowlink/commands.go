package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/snowlink/pkg/compression"
	"github.com/ajitpratap0/snowlink/pkg/export"
	"github.com/ajitpratap0/snowlink/pkg/handler/registry"
	"github.com/ajitpratap0/snowlink/pkg/response"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "snowlink v%s\n", version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintln(a.out, "Handlers:")
			for _, info := range registry.List() {
				fmt.Fprintf(a.out, "  - %s v%s (%s)\n", info.Name, info.Version, info.Description)
			}
			return nil
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the warehouse accepts connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ctx, cancel, err := a.handler(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			status := h.CheckConnection(ctx)
			if err := a.printJSON(status); err != nil {
				return err
			}
			if !status.Success {
				return fmt.Errorf("connection check failed")
			}
			return nil
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a native SQL statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ctx, cancel, err := a.handler(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			resp, err := h.NativeQuery(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printResponse(resp)
		},
	}
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and views of the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ctx, cancel, err := a.handler(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			resp, err := h.GetTables(ctx)
			if err != nil {
				return err
			}
			return a.printResponse(resp)
		},
	}
}

func (a *app) columnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ctx, cancel, err := a.handler(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			resp, err := h.GetColumns(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printResponse(resp)
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var format, algo, dest, region, credentials string

	cmd := &cobra.Command{
		Use:   "export <sql>",
		Short: "Run a query and write its result to a file, s3:// or gs:// location",
		Long: `Run a native SQL query and export the resulting table.

Example:
  snowlink export "select * from orders" --format jsonl --compression zstd --out s3://dumps/orders.jsonl.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := compression.ParseAlgorithm(algo)
			if err != nil {
				return err
			}

			h, ctx, cancel, err := a.handler(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			resp, err := h.NativeQuery(ctx, args[0])
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("query failed: %s", resp.ErrorMessage)
			}
			if !resp.IsTable() {
				return fmt.Errorf("query returned %s, nothing to export", resp)
			}

			res, err := export.New().Export(ctx, resp.Table, export.Options{
				Format:          f,
				Compression:     c,
				Destination:     dest,
				Region:          region,
				CredentialsFile: credentials,
			})
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format (csv, jsonl, arrow, avro)")
	cmd.Flags().StringVarP(&algo, "compression", "c", "none", "Compression (none, gzip, zstd, snappy, s2, lz4)")
	cmd.Flags().StringVarP(&dest, "out", "o", "", "Destination path, s3://bucket/key or gs://bucket/object (required)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region for s3:// destinations")
	cmd.Flags().StringVar(&credentials, "credentials-file", "", "GCP service account key for gs:// destinations")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// printResponse prints a response; ERROR responses also fail the command.
func (a *app) printResponse(resp *response.Response) error {
	if err := a.printJSON(resp); err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("query failed: %s", resp.ErrorMessage)
	}
	return nil
}
