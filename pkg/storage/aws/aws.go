package aws

import (
	"context"
	"log/slog"

	"s3mirror/internal/config"
	"s3mirror/internal/provider/registry"
	"s3mirror/pkg/storage"
)

func init() {
	registry.RegisterBackend("mock", registry.BackendRegistration{
		ConfigCheck: mockConfigured,
		Initializer: initializeMock,
	})
	registry.RegisterBackend("real", registry.BackendRegistration{
		ConfigCheck: realConfigured,
		Initializer: initializeReal,
	})
}

// The mock backend only needs a local endpoint to talk to.
func mockConfigured(cfg *config.Config) bool {
	return cfg.EndpointURL != ""
}

// The real backend needs credentials resolvable from some supported source.
func realConfigured(cfg *config.Config) bool {
	return CredentialsResolvable(cfg)
}

func initializeMock(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Client, error) {
	return NewMockClient(cfg, logger), nil
}

func initializeReal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Client, error) {
	return NewRealClient(ctx, cfg, logger)
}
