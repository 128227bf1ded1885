package snowflake

import (
	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/handler/registry"
)

// Version of the Snowflake handler.
const Version = "0.1.0"

var _ registry.Handler = (*Handler)(nil)

func init() {
	// Register the Snowflake handler in the global registry
	_ = registry.Register(registry.Info{
		Name:        Engine,
		Description: "Snowflake data warehouse",
		Version:     Version,
		Params:      append(append([]string(nil), config.MandatoryParams...), config.OptionalParams...),
	}, func(cfg *config.HandlerConfig) (registry.Handler, error) {
		return New(cfg)
	})
}
