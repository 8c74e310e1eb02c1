package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/zforge/internal/board"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for the configuration unless told otherwise.
const DefaultPath = "zforge.yml"

// Config represents the top-level zforge.yml configuration
type Config struct {
	Version   string          `yaml:"version"`
	OutputDir string          `yaml:"output_dir,omitempty"` // default: "build"
	Boards    []BoardConfig   `yaml:"boards,omitempty"`     // extends or replaces built-in targets
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Loaders   LoadersConfig   `yaml:"loaders"`
	Registry  *RegistryConfig `yaml:"registry,omitempty"`
	Lab       *LabConfig      `yaml:"lab,omitempty"`
}

// BoardConfig declares or replaces a board target in zforge.yml
type BoardConfig struct {
	Name         string          `yaml:"name"`
	SupportsFSBL bool            `yaml:"supports_fsbl,omitempty"`
	Variants     []VariantConfig `yaml:"variants"`
}

// VariantConfig declares one variant of a configured board
type VariantConfig struct {
	Name        string `yaml:"name"`
	Flavor      string `yaml:"flavor,omitempty"`      // "runtime" or "satman"; derived from the name if omitted
	Description string `yaml:"description,omitempty"` // path to a JSON hardware description
}

// ToolchainConfig names the external build tools
type ToolchainConfig struct {
	Firmware ToolConfig `yaml:"firmware"`
	Gateware ToolConfig `yaml:"gateware"`
	Packer   ToolConfig `yaml:"packer,omitempty"` // default: mkbootimage
}

// ToolConfig is one external tool: the base command plus an optional
// container image to run it in. With a container set the tool runs inside
// that image with the workspace bind-mounted; otherwise it runs as a local
// subprocess.
type ToolConfig struct {
	Command   []string `yaml:"command"`
	Container string   `yaml:"container,omitempty"`
}

// LoadersConfig locates the prebuilt loader stages. Loaders are inputs to
// image composition, not build products: <dir>/<target>/szl.elf always,
// plus <dir>/<target>/fsbl.elf for FSBL-capable targets.
type LoadersConfig struct {
	Dir string `yaml:"dir"`
}

// RegistryConfig connects zforge to the farm-wide build registry
type RegistryConfig struct {
	URL  string `yaml:"url"`            // redis:// URL
	Farm string `yaml:"farm,omitempty"` // namespace, default: "default"
}

// LabConfig describes the hardware-in-the-loop lab: the lock server, the
// deploy host that serves boot images, and the physical boards on the bench
type LabConfig struct {
	LockServer string              `yaml:"lock_server"` // host:port of boardlockd
	Deploy     DeployConfig        `yaml:"deploy"`
	Boards     map[string]LabBoard `yaml:"boards"`
}

// DeployConfig is the remote host that serves boot images to the boards
type DeployConfig struct {
	Host string `yaml:"host"`
	User string `yaml:"user,omitempty"`
	Dir  string `yaml:"dir"`
}

// LabBoard is one physical unit on the bench
type LabBoard struct {
	Target string   `yaml:"target"`
	Power  string   `yaml:"power"`  // host:port of the power relay controller
	Runner []string `yaml:"runner"` // acceptance test command, run locally
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Default the output directory
	if c.OutputDir == "" {
		c.OutputDir = "build"
	}

	// Validate each configured board
	for _, b := range c.Boards {
		if err := b.Validate(); err != nil {
			return err
		}
	}

	if err := c.Toolchain.Validate(); err != nil {
		return err
	}

	if c.Loaders.Dir == "" {
		return fmt.Errorf("loaders.dir is required (directory holding <target>/szl.elf images)")
	}

	if c.Registry != nil {
		if c.Registry.URL == "" {
			return fmt.Errorf("registry section present but registry.url is empty")
		}
		if c.Registry.Farm == "" {
			c.Registry.Farm = "default"
		}
	}

	if c.Lab != nil {
		if err := c.Lab.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate performs validation on a single configured board
func (b *BoardConfig) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("board with empty name")
	}

	if len(b.Variants) == 0 {
		return fmt.Errorf("board '%s': at least one variant is required", b.Name)
	}

	for _, v := range b.Variants {
		if v.Name == "" {
			return fmt.Errorf("board '%s': variant with empty name", b.Name)
		}
		if v.Flavor != "" && v.Flavor != string(board.FlavorRuntime) && v.Flavor != string(board.FlavorSatman) {
			return fmt.Errorf("board '%s' variant '%s': invalid flavor: %s (must be 'runtime' or 'satman')",
				b.Name, v.Name, v.Flavor)
		}
	}

	return nil
}

// Validate checks the toolchain commands. Firmware and gateware have no
// sensible defaults; the packer falls back to mkbootimage.
func (t *ToolchainConfig) Validate() error {
	if len(t.Firmware.Command) == 0 {
		return fmt.Errorf("toolchain.firmware.command is required")
	}
	if len(t.Gateware.Command) == 0 {
		return fmt.Errorf("toolchain.gateware.command is required")
	}
	if len(t.Packer.Command) == 0 {
		t.Packer.Command = []string{"mkbootimage"}
	}
	return nil
}

// Validate performs validation on the lab section
func (l *LabConfig) Validate() error {
	if l.LockServer == "" {
		return fmt.Errorf("lab.lock_server is required")
	}
	if l.Deploy.Host == "" {
		return fmt.Errorf("lab.deploy.host is required")
	}
	if l.Deploy.Dir == "" {
		return fmt.Errorf("lab.deploy.dir is required")
	}
	if len(l.Boards) == 0 {
		return fmt.Errorf("lab.boards must declare at least one board")
	}

	for id, b := range l.Boards {
		if b.Target == "" {
			return fmt.Errorf("lab board '%s': target is required", id)
		}
		if b.Power == "" {
			return fmt.Errorf("lab board '%s': power endpoint is required", id)
		}
		if !strings.Contains(b.Power, ":") {
			return fmt.Errorf("lab board '%s': power endpoint '%s' must be host:port", id, b.Power)
		}
		if len(b.Runner) == 0 {
			return fmt.Errorf("lab board '%s': runner command is required", id)
		}
	}

	return nil
}

// BoardRegistry builds the effective board registry: the built-in target
// matrix with configured boards appended, a configured board replacing a
// built-in target of the same name.
func (c *Config) BoardRegistry() (*board.Registry, error) {
	replaced := make(map[string]bool)
	for _, b := range c.Boards {
		replaced[b.Name] = true
	}

	var targets []board.Target
	for _, t := range board.DefaultRegistry().Targets() {
		if !replaced[t.Name] {
			targets = append(targets, t)
		}
	}

	for _, b := range c.Boards {
		t := board.Target{
			Name:         b.Name,
			SupportsFSBL: b.SupportsFSBL,
		}
		for _, v := range b.Variants {
			t.Variants = append(t.Variants, board.Variant{
				Name:        v.Name,
				Flavor:      board.Flavor(v.Flavor),
				Description: v.Description,
			})
		}
		targets = append(targets, t)
	}

	return board.NewRegistry(targets)
}

// RegistryURL returns the configured registry URL, falling back to the
// ZFORGE_REGISTRY_URL environment variable. Empty disables the registry.
func (c *Config) RegistryURL() string {
	if c.Registry != nil && c.Registry.URL != "" {
		return c.Registry.URL
	}
	return os.Getenv("ZFORGE_REGISTRY_URL")
}

// Farm returns the registry namespace, falling back to the ZFORGE_FARM
// environment variable and then to "default".
func (c *Config) Farm() string {
	if c.Registry != nil && c.Registry.Farm != "" {
		return c.Registry.Farm
	}
	if farm := os.Getenv("ZFORGE_FARM"); farm != "" {
		return farm
	}
	return "default"
}

// Load reads and validates zforge.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
