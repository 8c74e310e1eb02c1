package commands

import (
	"fmt"

	"github.com/dyluth/zforge/internal/config"
	"github.com/dyluth/zforge/internal/printer"
	"github.com/dyluth/zforge/internal/registry"
)

// loadConfig reads zforge.yml from the current directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		return nil, fmt.Errorf(`zforge.yml not found or invalid

No usable configuration found in the current directory.

Initialize your project first:
  zforge init

Then retry.

Error details: %w`, err)
	}
	return cfg, nil
}

// openRegistry connects to the farm registry, failing with remediation
// when none is configured. Callers that treat the registry as optional
// should check cfg.RegistryURL() first.
func openRegistry(cfg *config.Config) (*registry.Client, error) {
	url := cfg.RegistryURL()
	if url == "" {
		return nil, printer.Error(
			"no registry configured",
			"This command reads the farm-wide registry, but zforge.yml has no registry section and ZFORGE_REGISTRY_URL is unset.",
			[]string{"Add to zforge.yml:\n  registry:\n    url: redis://localhost:6379"},
		)
	}
	client, err := registry.NewClientFromURL(url, cfg.Farm())
	if err != nil {
		return nil, printer.Error(
			"failed to connect to the registry",
			fmt.Sprintf("Registry configured at %s but the connection failed: %v", url, err),
			[]string{"Check that Redis is reachable, or unset registry.url to work without one."},
		)
	}
	return client, nil
}
