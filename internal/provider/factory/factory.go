package factory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"s3mirror/internal/config"
	"s3mirror/internal/mode"
	"s3mirror/internal/provider/registry"
	"s3mirror/pkg/storage"
)

type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Returns the modes that are registered and usable with the current config
func (f *Factory) ConfiguredModes() []string {
	var configured []string
	for name, registration := range registry.GetAllRegistrations() {
		if registration.ConfigCheck(f.cfg) {
			configured = append(configured, name)
		}
	}
	sort.Strings(configured)
	return configured
}

// Checks if a specific mode is registered and usable with the current config
func (f *Factory) IsConfigured(name string) bool {
	registration, exists := registry.GetRegistration(name)
	if !exists {
		return false
	}
	return registration.ConfigCheck(f.cfg)
}

// GetClient initializes the client handle for the given mode. The handle is
// bound to exactly one endpoint and credential set and must not be shared
// across modes.
func (f *Factory) GetClient(ctx context.Context, m mode.Mode) (storage.Client, error) {
	clientLogger := f.logger.With("mode", m.String())

	registration, exists := registry.GetRegistration(m.String())
	if !exists {
		return nil, fmt.Errorf("unsupported mode: %s. Supported modes are: %v", m, registry.SupportedModes())
	}

	if !registration.ConfigCheck(f.cfg) {
		return nil, fmt.Errorf("%w: mode %q is not usable with the current configuration", storage.ErrConfiguration, m)
	}

	client, err := registration.Initializer(ctx, f.cfg, clientLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", m, err)
	}

	return client, nil
}
