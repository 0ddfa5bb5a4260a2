package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"s3mirror/internal/config"
	"s3mirror/internal/mode"
	"s3mirror/internal/provider/factory"
	"s3mirror/internal/service"
	"s3mirror/internal/ui/prompt"
	"s3mirror/pkg/access"
	"s3mirror/pkg/formatter"
	"s3mirror/pkg/mirror"
	"s3mirror/pkg/storage"
	"s3mirror/pkg/storage/aws"
)

// appContainer holds all the shared dependencies for the application
// This includes configuration, the backend factory, formatters, and the logger
type appContainer struct {
	Config        *config.Config
	ConfigManager *config.ConfigManager
	Factory       *factory.Factory
	Formatter     *formatter.StorageFormatter
	Prompter      prompt.Prompter
	Logger        *slog.Logger

	// UserID is the caller identity attached to storage operations, from
	// --user or the default_user_id config key.
	UserID string

	svc *service.StorageService
}

// Creates the application container. Config is loaded later, in the root
// command's PersistentPreRunE, once the --config flag is known.
func newApp(logger *slog.Logger) (*appContainer, error) {
	cfgManager, err := config.NewConfigManager()
	if err != nil {
		return nil, err
	}

	return &appContainer{
		ConfigManager: cfgManager,
		Formatter:     formatter.NewStorageFormatter(),
		Prompter:      prompt.NewStandardPrompter(os.Stdin, os.Stdout),
		Logger:        logger,
	}, nil
}

// StorageService lazily builds the facade: resolves the mode (running the
// identity probe when configured as auto), initializes the backend client and
// sets up one mirror tree per mode. The result is memoized for the run.
func (a *appContainer) StorageService(ctx context.Context) (*service.StorageService, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	m, err := a.resolveMode(ctx)
	if err != nil {
		return nil, err
	}

	client, err := a.Factory.GetClient(ctx, m)
	if err != nil {
		return nil, err
	}

	var (
		active  *mirror.Mirror
		mirrors mirror.Set
	)
	for _, each := range mode.All() {
		mr := mirror.New(filepath.Join(a.Config.MirrorRoot, each.String()), a.Logger)
		mirrors = append(mirrors, mr)
		if each == m {
			active = mr
		}
	}

	a.svc = service.NewStorageService(client, m, a.Config.Region, active, mirrors, access.NewAuthorizer(), a.Logger)
	return a.svc, nil
}

// resolveMode maps the configured mode to a concrete one. Auto probes caller
// identity: usable credentials select real, rejected credentials select mock.
// When no credential source exists at all, mock is selected without touching
// the network.
func (a *appContainer) resolveMode(ctx context.Context) (mode.Mode, error) {
	if a.Config.Mode != mode.Auto {
		return mode.Parse(a.Config.Mode)
	}

	probe, err := aws.NewIdentityProbe(ctx, a.Config)
	if err != nil {
		if errors.Is(err, storage.ErrConfiguration) {
			a.Logger.Debug("No AWS credentials resolvable, selecting mock mode")
			return mode.Mock, nil
		}
		return "", err
	}

	return mode.Detect(ctx, probe, a.Logger)
}
