package database

import (
	"context"
	"fmt"

	"github.com/rediwo/redi-eager/registry"
	"github.com/rediwo/redi-eager/types"
)

// Open parses uri and connects with the registered driver.
func Open(ctx context.Context, uri string) (types.Backend, Config, error) {
	cfg, err := ParseURI(uri)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to parse URI: %w", err)
	}
	backend, err := Connect(ctx, cfg)
	return backend, cfg, err
}

// Connect opens a backend from an already parsed config.
func Connect(ctx context.Context, cfg Config) (types.Backend, error) {
	factory, err := registry.Get(cfg.Driver)
	if err != nil {
		return nil, err
	}
	backend, err := factory(ctx, cfg.NativeURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	return backend, nil
}
