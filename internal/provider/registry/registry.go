package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"s3mirror/internal/config"
	"s3mirror/pkg/storage"
)

// Reports whether a backend has what it needs from the configuration to be
// constructed at all (an endpoint for mock, resolvable credentials for real).
type BackendConfigCheck func(cfg *config.Config) bool

// Produces a client handle bound to one backend. Construction must not
// contact the network.
type BackendInitializer func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Client, error)

// Holds the functions needed to check configuration and initialize a backend
type BackendRegistration struct {
	ConfigCheck BackendConfigCheck
	Initializer BackendInitializer
}

var (
	// Registrations keyed by mode name (lowercase)
	backendRegistry = make(map[string]BackendRegistration)
	registryMu      sync.RWMutex
)

// Allows a backend implementation package to register itself during init()
func RegisterBackend(name string, registration BackendRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	normalizedName := strings.ToLower(name)
	if _, exists := backendRegistry[normalizedName]; exists {
		panic(fmt.Sprintf("backend %s already registered", normalizedName))
	}

	if registration.ConfigCheck == nil {
		panic(fmt.Sprintf("backend %s registration missing ConfigCheck", normalizedName))
	}
	if registration.Initializer == nil {
		panic(fmt.Sprintf("backend %s registration missing Initializer", normalizedName))
	}

	backendRegistry[normalizedName] = registration
}

// Returns a sorted list of all registered mode names
func SupportedModes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	modes := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		modes = append(modes, name)
	}
	sort.Strings(modes)
	return modes
}

// Checks if a mode name has been registered
func IsSupported(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, exists := backendRegistry[strings.ToLower(name)]
	return exists
}

// Retrieves the registration details for a mode
func GetRegistration(name string) (BackendRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	registration, exists := backendRegistry[strings.ToLower(name)]
	return registration, exists
}

// Returns a copy of the entire registry map (primarily for use by the factory)
func GetAllRegistrations() map[string]BackendRegistration {
	registryMu.RLock()
	defer registryMu.RUnlock()

	registrations := make(map[string]BackendRegistration, len(backendRegistry))
	for k, v := range backendRegistry {
		registrations[k] = v
	}
	return registrations
}
