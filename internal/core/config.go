package core

import (
	"fmt"
	"strings"

	"github.com/deskpilot/deskpilot/pkg/models"
	"github.com/spf13/viper"
)

// ConfigurationManager defines the interface for loading and validating the
// controller configuration from the .dpconfig file.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the root directory where .dpconfig resides.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads the
// configuration file from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// defaultConfig returns a Config populated with sensible defaults.
func defaultConfig() *models.Config {
	return &models.Config{
		Connection: models.ConnectionConfig{
			ADBPath: "adb",
			Address: "127.0.0.1:5555",
			Profile: "General",
		},
		ClientChannel:  models.ChannelDefault,
		LauncherSocket: "/tmp/deskpilot-launcher.sock",
		EngineSocket:   "/tmp/deskpilot-engine.sock",
	}
}

// LoadConfig reads the .dpconfig file from the base path using Viper.
// If the file does not exist, sensible defaults are returned.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigName(".dpconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("connection.adb_path", cfg.Connection.ADBPath)
	v.SetDefault("connection.address", cfg.Connection.Address)
	v.SetDefault("connection.profile", cfg.Connection.Profile)
	v.SetDefault("client.channel", string(cfg.ClientChannel))
	v.SetDefault("launcher.socket", cfg.LauncherSocket)
	v.SetDefault("engine.socket", cfg.EngineSocket)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .dpconfig: %w", err)
	}

	cfg.Connection.ADBPath = v.GetString("connection.adb_path")
	cfg.Connection.Address = v.GetString("connection.address")
	cfg.Connection.Profile = v.GetString("connection.profile")
	cfg.ClientChannel = models.ClientChannel(v.GetString("client.channel"))
	cfg.LauncherSocket = v.GetString("launcher.socket")
	cfg.EngineSocket = v.GetString("engine.socket")

	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and returns a
// clear error message identifying every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Connection.ADBPath == "" {
		errs = append(errs, "connection.adb_path must not be empty")
	}
	if cfg.Connection.Address == "" {
		errs = append(errs, "connection.address must not be empty")
	}
	if !cfg.ClientChannel.Valid() {
		errs = append(errs, fmt.Sprintf(
			"client.channel %q is invalid, must be one of: official, bilibili, global, jp, kr, or empty",
			cfg.ClientChannel,
		))
	}
	if cfg.EngineSocket == "" {
		errs = append(errs, "engine.socket must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
