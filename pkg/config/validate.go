package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.LLM.BackendURL == "" {
		errs = append(errs, fmt.Errorf("llm.backend_url is required"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.ObserverBus.Backend {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("observer_bus.backend must be \"memory\" or \"redis\", got %q", c.ObserverBus.Backend))
	}
	if c.ObserverBus.Backend == "redis" && c.ObserverBus.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("observer_bus.redis_addr is required when observer_bus.backend is \"redis\""))
	}

	if c.Sandbox.Root == "" {
		errs = append(errs, fmt.Errorf("sandbox.root is required"))
	}

	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload.max_bytes must be > 0, got %d", c.Upload.MaxBytes))
	}

	if c.ToolServer.Command == "" {
		errs = append(errs, fmt.Errorf("toolserver.command is required"))
	}

	return errors.Join(errs...)
}
