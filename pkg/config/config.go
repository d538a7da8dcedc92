// Package config provides unified configuration for the scrubgate
// gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SCRUB_ prefix, plus a few
//     domain-specific names listed on applyEnvOverrides)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the scrubgate gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Scrubbing     ScrubbingConfig     `yaml:"scrubbing"`
	ToolServer    ToolServerConfig    `yaml:"toolserver"`
	ObserverBus   ObserverBusConfig   `yaml:"observer_bus"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Upload        UploadConfig        `yaml:"upload"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`              // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`      // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`     // default: 120s
	RequestIDHeader string        `yaml:"request_id_header"` // default: X-Request-ID
}

// LLMConfig holds the downstream inference server settings: the
// OpenAI-compatible backend the Gateway proxies chat completions to,
// and also calls for Detector classification.
type LLMConfig struct {
	BackendURL    string        `yaml:"backend_url"`    // required
	APIKey        string        `yaml:"api_key"`        // optional
	APIKeyFile    string        `yaml:"api_key_file"`   // _file variant for api_key
	DetectorModel string        `yaml:"detector_model"` // model sent on Detector requests, default: empty (sent as-is)
	Timeout       time.Duration `yaml:"timeout"`        // non-streaming passthrough timeout, default: 120s
}

// ScrubbingConfig controls the Mode Flag's default and the prompt-size ceiling.
type ScrubbingConfig struct {
	EnabledByDefault bool  `yaml:"enabled_by_default"` // default: true
	PromptLimitBytes int64 `yaml:"prompt_limit_bytes"` // default: 32 KiB
}

// ToolServerConfig describes how to spawn the ToolServer Channel's child process.
type ToolServerConfig struct {
	Command string   `yaml:"command"` // default: the scrubgate-toolserver binary on PATH
	Args    []string `yaml:"args"`
}

// ObserverBusConfig selects and configures the Observer Bus backend.
type ObserverBusConfig struct {
	Backend   string `yaml:"backend"`    // "memory" or "redis", default: "memory"
	RedisAddr string `yaml:"redis_addr"` // required when backend == "redis"
}

// SandboxConfig points at the Sandbox's root directory.
type SandboxConfig struct {
	Root string `yaml:"root"` // default: "./sandbox"
}

// UploadConfig bounds the file-upload endpoint.
type UploadConfig struct {
	MaxBytes       int64  `yaml:"max_bytes"`       // default: 2 MiB
	SniffBytes     int    `yaml:"sniff_bytes"`     // default: 4096 (leading bytes sent to the Detector; MIME sniffing always reads the first 512)
	PassthroughURL string `yaml:"passthrough_url"` // downstream UI's file endpoint, used when scrubbing is disabled
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

const (
	defaultMaxUploadBytes   = 2 << 20  // 2 MiB
	defaultSniffBytes       = 4096
	defaultPromptLimitBytes = 32 << 10 // 32 KiB
	defaultLLMTimeout       = 120 * time.Second
)

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			RequestIDHeader: "X-Request-ID",
		},
		LLM: LLMConfig{
			Timeout: defaultLLMTimeout,
		},
		Scrubbing: ScrubbingConfig{
			EnabledByDefault: true,
			PromptLimitBytes: defaultPromptLimitBytes,
		},
		ToolServer: ToolServerConfig{
			Command: "scrubgate-toolserver",
		},
		ObserverBus: ObserverBusConfig{
			Backend: "memory",
		},
		Sandbox: SandboxConfig{
			Root: "./sandbox",
		},
		Upload: UploadConfig{
			MaxBytes:   defaultMaxUploadBytes,
			SniffBytes: defaultSniffBytes,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
