// Package registry maps engine names to handler factories so a host engine can
// instantiate handlers from configuration.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/logger"
	"github.com/ajitpratap0/snowlink/pkg/response"
	"github.com/ajitpratap0/snowlink/pkg/sqlast"
)

// Handler is the surface a host engine uses to talk to a data source.
type Handler interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect() error
	CheckConnection(ctx context.Context) response.StatusResponse
	NativeQuery(ctx context.Context, query string) (*response.Response, error)
	Query(ctx context.Context, node sqlast.Node) (*response.Response, error)
	GetTables(ctx context.Context) (*response.Response, error)
	GetColumns(ctx context.Context, tableName any) (*response.Response, error)
}

// Factory creates a handler from its configuration.
type Factory func(cfg *config.HandlerConfig) (Handler, error)

// Info describes a registered engine.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Params      []string `json:"params"`
}

// Registry manages handler registration and instantiation
type Registry struct {
	factories map[string]Factory
	infos     map[string]Info
	mu        sync.RWMutex
	logger    *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new handler registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		infos:     make(map[string]Info),
		logger:    logger.Get().With(zap.String("component", "handler_registry")),
	}
}

// Register registers a handler factory under info.Name.
func (r *Registry) Register(info Info, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[info.Name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("handler %s already registered", info.Name))
	}

	r.factories[info.Name] = factory
	r.infos[info.Name] = info
	r.logger.Debug("handler registered", zap.String("name", info.Name))
	return nil
}

// Create instantiates the handler for cfg.Engine.
func (r *Registry) Create(cfg *config.HandlerConfig) (Handler, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "handler configuration is required")
	}

	r.mu.RLock()
	factory, exists := r.factories[cfg.Engine]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("handler %s not found", cfg.Engine))
	}

	h, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create handler %s", cfg.Engine))
	}
	return h, nil
}

// List returns the registered engines sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Has checks if an engine is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Register registers a handler in the global registry
func Register(info Info, factory Factory) error {
	return globalRegistry.Register(info, factory)
}

// Create creates a handler from the global registry
func Create(cfg *config.HandlerConfig) (Handler, error) {
	return globalRegistry.Create(cfg)
}

// List returns the engines of the global registry
func List() []Info {
	return globalRegistry.List()
}

// Has checks if an engine is registered in the global registry
func Has(name string) bool {
	return globalRegistry.Has(name)
}
