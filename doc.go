// Package snowlink provides the Snowflake handler of a federated SQL query
// engine.
//
// The handler executes native SQL and host query trees against a Snowflake
// account and folds results and schema metadata into the engine's canonical
// type system and uniform tabular response. Connection negotiation,
// authentication and result streaming are delegated to gosnowflake.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/snowlink/pkg/config"
//	    "github.com/ajitpratap0/snowlink/pkg/handler/registry"
//	    _ "github.com/ajitpratap0/snowlink/pkg/handler/snowflake"
//	)
//
//	cfg := config.NewHandlerConfig("analytics", "snowflake")
//	cfg.Connection = config.ConnectionConfig{
//	    "account":  "xy12345",
//	    "user":     "${SNOWFLAKE_USER}",
//	    "password": "${SNOWFLAKE_PASSWORD}",
//	    "database": "SALES",
//	}
//
//	h, _ := registry.Create(cfg)
//	resp, err := h.NativeQuery(context.Background(), "select * from orders")
//
// # Key Packages
//
//	pkg/handler/snowflake - Type mapping, connection management, result translation
//	pkg/handler/registry  - Name to handler factory registry
//	pkg/response          - TABLE / OK / ERROR responses
//	pkg/sqlast            - Host query tree and Snowflake renderer
//	pkg/export            - Result export to files, S3 and GCS
//	pkg/config            - Handler configuration
//	pkg/errors            - Structured error handling
//	pkg/logger            - Structured logging
//	pkg/metrics           - Prometheus collectors
//	pkg/observability     - OpenTelemetry tracing
//
// # Results
//
// Results are fetched as Arrow batches when the driver can serve them. The
// handler estimates the memory a large result will need once the first
// thousand rows have arrived and fails the query early when the estimate
// exceeds the available memory. Statements the bulk path cannot serve (DML,
// duplicate column names) are read row by row instead.
//
// # Configuration
//
// Configuration files are YAML; ${VAR_NAME} references are substituted from
// the environment. The snowlink CLI additionally reads SNOWLINK_* variables:
//
//	snowlink --config handler.yaml check
//	SNOWLINK_ACCOUNT=xy12345 snowlink tables
//	snowlink export "select * from orders" --format avro --out gs://dumps/orders.avro
package snowlink
