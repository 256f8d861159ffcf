package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Image    ImageConfig    `yaml:"image" mapstructure:"image"`
	Compare  CompareConfig  `yaml:"compare" mapstructure:"compare"`
	Security SecurityConfig `yaml:"security" mapstructure:"security"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Audit    AuditConfig    `yaml:"audit" mapstructure:"audit"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// ModelConfig contains face recognition model configuration
type ModelConfig struct {
	Name               string  `yaml:"name" mapstructure:"name"`                                 // "buffalo_l"
	DetectorPath       string  `yaml:"detector_path" mapstructure:"detector_path"`               // SCRFD detection model
	RecognizerPath     string  `yaml:"recognizer_path" mapstructure:"recognizer_path"`           // ArcFace recognition model
	Device             string  `yaml:"device" mapstructure:"device"`                             // cpu or cuda
	DetectionThreshold float32 `yaml:"detection_threshold" mapstructure:"detection_threshold"`   // minimum face confidence
	DetectionSize      int     `yaml:"detection_size" mapstructure:"detection_size"`             // detector input side length
	EmbeddingSize      int     `yaml:"embedding_size" mapstructure:"embedding_size"`             // recognizer output length
}

// ImageConfig contains image input constraints
type ImageConfig struct {
	MaxBytes     int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	MinDimension int           `yaml:"min_dimension" mapstructure:"min_dimension"`
	MaxDimension int           `yaml:"max_dimension" mapstructure:"max_dimension"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

// CompareConfig contains match-decision thresholds per distance metric
type CompareConfig struct {
	CosineThreshold    float64 `yaml:"cosine_threshold" mapstructure:"cosine_threshold"`
	EuclideanThreshold float64 `yaml:"euclidean_threshold" mapstructure:"euclidean_threshold"`
}

// SecurityConfig contains authentication, CORS and rate limiting configuration
type SecurityConfig struct {
	APIToken string `yaml:"api_token" mapstructure:"api_token"` // empty disables auth
	CORS     struct {
		Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
		Origins []string `yaml:"origins" mapstructure:"origins"`
	} `yaml:"cors" mapstructure:"cors"`
	RateLimit struct {
		Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
		Burst          int     `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CacheConfig contains the optional Redis embedding cache configuration
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// AuditConfig contains the optional Postgres audit log configuration
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// EventsConfig contains WebSocket event stream configuration
type EventsConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Path           string   `yaml:"path" mapstructure:"path"`
	MaxConnections int      `yaml:"max_connections" mapstructure:"max_connections"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Model: ModelConfig{
			Name:               "buffalo_l",
			DetectorPath:       "./models/det_10g.onnx",
			RecognizerPath:     "./models/w600k_r50.onnx",
			Device:             "cpu",
			DetectionThreshold: 0.5,
			DetectionSize:      640,
			EmbeddingSize:      512,
		},
		Image: ImageConfig{
			MaxBytes:     10 * 1024 * 1024,
			MinDimension: 32,
			MaxDimension: 4096,
			FetchTimeout: 30 * time.Second,
		},
		Compare: CompareConfig{
			CosineThreshold:    0.4,
			EuclideanThreshold: 1.0,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisURL:  "redis://localhost:6379/0",
			TTL:       6 * time.Hour,
			KeyPrefix: "facerec:embed:",
		},
		Audit: AuditConfig{
			Enabled:         false,
			DatabaseURL:     "postgres://localhost:5432/facerec?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		Events: EventsConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxConnections: 100,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	cfg.Security.CORS.Enabled = true
	cfg.Security.CORS.Origins = []string{"*"}
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerSec = 10
	cfg.Security.RateLimit.Burst = 20

	return cfg
}
