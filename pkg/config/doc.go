// Package config provides configuration management for snowlink handlers.
//
// # Usage
//
//	cfg, err := config.LoadHandlerConfig("snowflake.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A configuration file looks like:
//
//	name: analytics
//	engine: snowflake
//	connection:
//	  account: xy12345.eu-west-1
//	  user: LOADER
//	  password: ${SNOWFLAKE_PASSWORD}
//	  database: ANALYTICS
//	  warehouse: COMPUTE_WH
//	memory:
//	  release_unused: true
//
// ${VAR_NAME} references are substituted from the environment before parsing.
// A reference to an unset variable becomes the empty string.
package config
