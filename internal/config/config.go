package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/facerec/")
	viper.AddConfigPath("$HOME/.facerec/")

	// Environment variable overrides
	viper.SetEnvPrefix("FACEREC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Model.Device != "cpu" && config.Model.Device != "cuda" {
		return fmt.Errorf("invalid model device: %s (must be cpu or cuda)", config.Model.Device)
	}

	if config.Model.EmbeddingSize <= 0 {
		return fmt.Errorf("invalid embedding size: %d", config.Model.EmbeddingSize)
	}

	if config.Model.DetectionThreshold <= 0 || config.Model.DetectionThreshold >= 1 {
		return fmt.Errorf("invalid detection threshold: %f (must be in (0, 1))", config.Model.DetectionThreshold)
	}

	if config.Image.MaxBytes <= 0 {
		return fmt.Errorf("invalid image max_bytes: %d", config.Image.MaxBytes)
	}

	if config.Image.MinDimension <= 0 || config.Image.MaxDimension < config.Image.MinDimension {
		return fmt.Errorf("invalid image dimension bounds: min=%d max=%d",
			config.Image.MinDimension, config.Image.MaxDimension)
	}

	if config.Compare.CosineThreshold <= 0 || config.Compare.EuclideanThreshold <= 0 {
		return fmt.Errorf("match thresholds must be positive")
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func Watch(config *Config, callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
