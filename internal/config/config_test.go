package config

import "testing"

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Model.Name != "buffalo_l" {
		t.Errorf("expected default model buffalo_l, got %q", cfg.Model.Name)
	}
	if cfg.Model.EmbeddingSize != 512 {
		t.Errorf("expected embedding size 512, got %d", cfg.Model.EmbeddingSize)
	}
	if cfg.Compare.CosineThreshold != 0.4 {
		t.Errorf("expected cosine threshold 0.4, got %v", cfg.Compare.CosineThreshold)
	}
	if cfg.Compare.EuclideanThreshold != 1.0 {
		t.Errorf("expected euclidean threshold 1.0, got %v", cfg.Compare.EuclideanThreshold)
	}
	if cfg.Image.MaxBytes != 10*1024*1024 {
		t.Errorf("expected max image size 10MB, got %d", cfg.Image.MaxBytes)
	}
	if cfg.Cache.Enabled || cfg.Audit.Enabled {
		t.Error("cache and audit must be disabled by default")
	}

	if err := validateConfig(cfg); err != nil {
		t.Errorf("default configuration must validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"invalid device", func(c *Config) { c.Model.Device = "tpu" }},
		{"zero embedding size", func(c *Config) { c.Model.EmbeddingSize = 0 }},
		{"detection threshold too low", func(c *Config) { c.Model.DetectionThreshold = 0 }},
		{"detection threshold too high", func(c *Config) { c.Model.DetectionThreshold = 1 }},
		{"zero max bytes", func(c *Config) { c.Image.MaxBytes = 0 }},
		{"dimension bounds inverted", func(c *Config) { c.Image.MinDimension = 100; c.Image.MaxDimension = 50 }},
		{"negative cosine threshold", func(c *Config) { c.Compare.CosineThreshold = -1 }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
