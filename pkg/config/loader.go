package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SCRUB_CONFIG env, ./config.yaml, /etc/scrubgate/config.yaml)
//  3. SCRUB_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SCRUB_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/scrubgate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("SCRUB_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/scrubgate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps SCRUB_*-prefixed (and a couple of
// domain-specific) environment variables onto config fields.
//
// A handful of unprefixed names (LLM_BASE_URL, LLM_TIMEOUT,
// SCRUB_PROMPT_LIMIT_KB, SCRUB_FILE_LIMIT_KB, SCRUB_DATA_PATH,
// OPENWEBUI_URL) are carried over unchanged from spec.md §6 for
// compatibility with existing deployment scripts; the SCRUB_-prefixed
// names below are this expansion's structured equivalents and take
// precedence when both are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BackendURL = v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.LLM.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("SCRUB_PROMPT_LIMIT_KB"); v != "" {
		if kb, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Scrubbing.PromptLimitBytes = kb << 10
		}
	}
	if v := os.Getenv("SCRUB_FILE_LIMIT_KB"); v != "" {
		if kb, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxBytes = kb << 10
		}
	}
	if v := os.Getenv("SCRUB_DATA_PATH"); v != "" {
		cfg.Sandbox.Root = v
	}
	if v := os.Getenv("OPENWEBUI_URL"); v != "" {
		cfg.Upload.PassthroughURL = v
	}

	if v := os.Getenv("SCRUB_BACKEND_URL"); v != "" {
		cfg.LLM.BackendURL = v
	}
	if v := os.Getenv("SCRUB_DETECTOR_MODEL"); v != "" {
		cfg.LLM.DetectorModel = v
	}
	if v := os.Getenv("SCRUB_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SCRUB_API_KEY_FILE"); v != "" {
		cfg.LLM.APIKeyFile = v
	}
	if v := os.Getenv("SCRUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCRUB_REQUEST_ID_HEADER"); v != "" {
		cfg.Server.RequestIDHeader = v
	}
	if v := os.Getenv("SCRUB_SCRUBBING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Scrubbing.EnabledByDefault = enabled
		}
	}
	if v := os.Getenv("SCRUB_TOOLSERVER_COMMAND"); v != "" {
		cfg.ToolServer.Command = v
	}
	if v := os.Getenv("SCRUB_SANDBOX_ROOT"); v != "" {
		cfg.Sandbox.Root = v
	}
	if v := os.Getenv("SCRUB_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxBytes = n
		}
	}

	// OBSERVER_BUS_* is unprefixed because it names an external
	// broker choice shared across processes, matching spec §6.
	if v := os.Getenv("OBSERVER_BUS_BACKEND"); v != "" {
		cfg.ObserverBus.Backend = v
	}
	if v := os.Getenv("OBSERVER_BUS_REDIS_ADDR"); v != "" {
		cfg.ObserverBus.RedisAddr = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is
// empty and the file field is set, the file is read, whitespace is
// trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.LLM.APIKeyFile != "" && cfg.LLM.APIKey == "" {
		val, err := readSecretFile(cfg.LLM.APIKeyFile)
		if err != nil {
			return fmt.Errorf("llm.api_key_file: %w", err)
		}
		cfg.LLM.APIKey = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
