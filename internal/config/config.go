package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"s3mirror/pkg/storage"
)

const (
	ConfigFileName = "config.json"
	ConfigDirName  = "s3mirror"
)

// Config enumerates every recognized setting and its type. Loose key-value
// maps from earlier revisions were replaced with this struct so unknown keys
// fail loudly at the config command instead of being silently carried along.
type Config struct {
	// Mode is mock, real, or auto. Auto runs the identity probe on first use.
	Mode string `mapstructure:"mode" validate:"omitempty,oneof=mock real auto"`
	// EndpointURL overrides the S3 endpoint; mock mode points this at the
	// local emulator.
	EndpointURL     string `mapstructure:"endpoint_url" validate:"omitempty,url"`
	Region          string `mapstructure:"region" validate:"required"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	// DefaultUserID, when set, is attached to every facade call and gates
	// reads/writes through the authorizer.
	DefaultUserID string `mapstructure:"default_user_id"`
	// MirrorRoot is the directory holding one shadow tree per mode.
	MirrorRoot string `mapstructure:"mirror_root" validate:"required"`
}

// recognizedKeys guards the config set/get/delete commands.
var recognizedKeys = map[string]bool{
	"mode":              true,
	"endpoint_url":      true,
	"region":            true,
	"profile":           true,
	"access_key_id":     true,
	"secret_access_key": true,
	"default_user_id":   true,
	"mirror_root":       true,
}

type ConfigManager struct {
	v        *viper.Viper
	path     string
	validate *validator.Validate
}

func NewConfigManager() (*ConfigManager, error) {
	// A .env file in the working directory supplies credentials during
	// development; a missing file is not an error.
	_ = godotenv.Load()

	path, err := configPath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("mode", "auto")
	v.SetDefault("endpoint_url", "http://localhost:5000")
	v.SetDefault("region", "us-east-1")

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user home directory: %w", err)
	}
	v.SetDefault("mirror_root", filepath.Join(home, ".s3mirror"))

	bindings := map[string]string{
		"endpoint_url":      "S3_ENDPOINT_URL",
		"region":            "AWS_REGION",
		"profile":           "AWS_PROFILE",
		"access_key_id":     "AWS_ACCESS_KEY_ID",
		"secret_access_key": "AWS_SECRET_ACCESS_KEY",
		"default_user_id":   "S3MIRROR_USER",
		"mode":              "S3MIRROR_MODE",
		"mirror_root":       "S3MIRROR_ROOT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env, err)
		}
	}

	return &ConfigManager{
		v:        v,
		path:     path,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// SetConfigPath points the manager at an explicit config file (--config).
func (m *ConfigManager) SetConfigPath(path string) {
	m.path = path
	m.v.SetConfigFile(path)
}

func (m *ConfigManager) ConfigPath() string {
	return m.path
}

// LoadConfig merges defaults, environment and the config file into a
// validated Config. A missing config file yields the defaults.
func (m *ConfigManager) LoadConfig() (*Config, error) {
	if err := m.v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("%w: reading config file %s: %v", storage.ErrConfiguration, m.path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := m.v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %v", storage.ErrConfiguration, err)
	}

	if err := m.validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrConfiguration, err)
	}

	return &cfg, nil
}

// SetValue persists a single key into the config file.
func (m *ConfigManager) SetValue(key, value string) error {
	key = strings.ToLower(key)
	if !recognizedKeys[key] {
		return fmt.Errorf("unknown config key %q (recognized keys: %s)", key, strings.Join(KnownKeys(), ", "))
	}

	settings, err := m.readFile()
	if err != nil {
		return err
	}
	settings[key] = value
	return m.writeFile(settings)
}

// GetValue reads a single key from the merged configuration.
func (m *ConfigManager) GetValue(key string) (string, bool, error) {
	key = strings.ToLower(key)
	if !recognizedKeys[key] {
		return "", false, fmt.Errorf("unknown config key %q", key)
	}
	if err := m.v.ReadInConfig(); err != nil && !os.IsNotExist(err) && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return "", false, fmt.Errorf("error reading config file: %w", err)
	}
	val := m.v.GetString(key)
	return val, val != "", nil
}

// DeleteValue removes a key from the config file. Returns false when the key
// was not set there.
func (m *ConfigManager) DeleteValue(key string) (bool, error) {
	key = strings.ToLower(key)
	if !recognizedKeys[key] {
		return false, fmt.Errorf("unknown config key %q", key)
	}

	settings, err := m.readFile()
	if err != nil {
		return false, err
	}
	if _, ok := settings[key]; !ok {
		return false, nil
	}
	delete(settings, key)
	return true, m.writeFile(settings)
}

// GetAllSettings returns the keys stored in the config file, for display.
func (m *ConfigManager) GetAllSettings() (map[string]any, error) {
	return m.readFile()
}

func (m *ConfigManager) readFile() (map[string]any, error) {
	settings := map[string]any{}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if len(data) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return settings, nil
}

func (m *ConfigManager) writeFile(settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// KnownKeys returns the recognized config keys, sorted.
func KnownKeys() []string {
	keys := make([]string, 0, len(recognizedKeys))
	for k := range recognizedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func configPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", ConfigDirName)
	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	// Legacy location: a config file in the working directory.
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName, nil
	}

	return configPath, nil
}
