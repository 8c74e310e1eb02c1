package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/zforge/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "zforge.yml")

	// Write valid config
	validConfig := `version: "1.0"
toolchain:
  firmware:
    command: ["fw-build"]
  gateware:
    command: ["gw-build"]
loaders:
  dir: loaders
`
	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	// Load and validate
	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "build", config.OutputDir, "output_dir should default to build")
	assert.Equal(t, []string{"fw-build"}, config.Toolchain.Firmware.Command)
	assert.Equal(t, []string{"mkbootimage"}, config.Toolchain.Packer.Command, "packer should default to mkbootimage")
	assert.Equal(t, "loaders", config.Loaders.Dir)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/zforge.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "zforge.yml")

	// Write invalid YAML
	invalidYAML := `version: "1.0"
toolchain:
  - this is invalid
    yaml syntax
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func validToolchain() ToolchainConfig {
	return ToolchainConfig{
		Firmware: ToolConfig{Command: []string{"fw-build"}},
		Gateware: ToolConfig{Command: []string{"gw-build"}},
	}
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &Config{
		Version:   "2.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_MissingFirmwareCommand(t *testing.T) {
	config := &Config{
		Version: "1.0",
		Toolchain: ToolchainConfig{
			Gateware: ToolConfig{Command: []string{"gw-build"}},
		},
		Loaders: LoadersConfig{Dir: "loaders"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "toolchain.firmware.command is required")
}

func TestValidate_MissingGatewareCommand(t *testing.T) {
	config := &Config{
		Version: "1.0",
		Toolchain: ToolchainConfig{
			Firmware: ToolConfig{Command: []string{"fw-build"}},
		},
		Loaders: LoadersConfig{Dir: "loaders"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "toolchain.gateware.command is required")
}

func TestValidate_MissingLoadersDir(t *testing.T) {
	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "loaders.dir is required")
}

func TestValidate_EmptyRegistryURL(t *testing.T) {
	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
		Registry:  &RegistryConfig{},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "registry.url is empty")
}

func TestValidate_RegistryFarmDefaults(t *testing.T) {
	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
		Registry:  &RegistryConfig{URL: "redis://localhost:6379"},
	}

	err := config.Validate()
	require.NoError(t, err)
	assert.Equal(t, "default", config.Registry.Farm)
	assert.Equal(t, "default", config.Farm())
	assert.Equal(t, "redis://localhost:6379", config.RegistryURL())
}

func TestBoardValidate_EmptyName(t *testing.T) {
	b := BoardConfig{
		Variants: []VariantConfig{{Name: "standalone"}},
	}

	err := b.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "board with empty name")
}

func TestBoardValidate_NoVariants(t *testing.T) {
	b := BoardConfig{Name: "zc706_custom"}

	err := b.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one variant is required")
}

func TestBoardValidate_InvalidFlavor(t *testing.T) {
	b := BoardConfig{
		Name: "zc706_custom",
		Variants: []VariantConfig{
			{Name: "standalone", Flavor: "bootloader"},
		},
	}

	err := b.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid flavor: bootloader")
	assert.Contains(t, err.Error(), "must be 'runtime' or 'satman'")
}

func TestLabValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		lab     LabConfig
		wantErr string
	}{
		{
			name:    "missing lock server",
			lab:     LabConfig{},
			wantErr: "lab.lock_server is required",
		},
		{
			name: "missing deploy host",
			lab: LabConfig{
				LockServer: "rpi-hitl:7777",
			},
			wantErr: "lab.deploy.host is required",
		},
		{
			name: "missing deploy dir",
			lab: LabConfig{
				LockServer: "rpi-hitl:7777",
				Deploy:     DeployConfig{Host: "rpi-hitl"},
			},
			wantErr: "lab.deploy.dir is required",
		},
		{
			name: "no boards",
			lab: LabConfig{
				LockServer: "rpi-hitl:7777",
				Deploy:     DeployConfig{Host: "rpi-hitl", Dir: "/srv/boot"},
			},
			wantErr: "at least one board",
		},
		{
			name: "board missing target",
			lab: LabConfig{
				LockServer: "rpi-hitl:7777",
				Deploy:     DeployConfig{Host: "rpi-hitl", Dir: "/srv/boot"},
				Boards: map[string]LabBoard{
					"bench-1": {Power: "relay:3272", Runner: []string{"run-tests"}},
				},
			},
			wantErr: "lab board 'bench-1': target is required",
		},
		{
			name: "board power not host:port",
			lab: LabConfig{
				LockServer: "rpi-hitl:7777",
				Deploy:     DeployConfig{Host: "rpi-hitl", Dir: "/srv/boot"},
				Boards: map[string]LabBoard{
					"bench-1": {Target: "zc706", Power: "relay", Runner: []string{"run-tests"}},
				},
			},
			wantErr: "must be host:port",
		},
		{
			name: "board missing runner",
			lab: LabConfig{
				LockServer: "rpi-hitl:7777",
				Deploy:     DeployConfig{Host: "rpi-hitl", Dir: "/srv/boot"},
				Boards: map[string]LabBoard{
					"bench-1": {Target: "zc706", Power: "relay:3272"},
				},
			},
			wantErr: "runner command is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lab.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBoardRegistry_DefaultsOnly(t *testing.T) {
	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
	}
	require.NoError(t, config.Validate())

	reg, err := config.BoardRegistry()
	require.NoError(t, err)

	res, err := reg.Resolve("zc706", "nist_qc2_satellite")
	require.NoError(t, err)
	assert.Equal(t, board.FlavorSatman, res.Flavor)
	assert.True(t, res.RequiresFSBL)
}

func TestBoardRegistry_ExtendsBuiltIns(t *testing.T) {
	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
		Boards: []BoardConfig{
			{
				Name: "coraz7",
				Variants: []VariantConfig{
					{Name: "standalone"},
					{Name: "satellite"},
				},
			},
		},
	}
	require.NoError(t, config.Validate())

	reg, err := config.BoardRegistry()
	require.NoError(t, err)

	// Built-in target still present
	_, err = reg.Resolve("kasli_soc", "master")
	require.NoError(t, err)

	// Configured target resolves with derived flavors
	res, err := reg.Resolve("coraz7", "satellite")
	require.NoError(t, err)
	assert.Equal(t, board.FlavorSatman, res.Flavor)
	assert.False(t, res.RequiresFSBL)
}

func TestBoardRegistry_ReplacesBuiltIn(t *testing.T) {
	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
		Boards: []BoardConfig{
			{
				Name:         "ebaz4205",
				SupportsFSBL: true,
				Variants: []VariantConfig{
					{Name: "standalone"},
					{Name: "lab_test", Flavor: "satman"},
				},
			},
		},
	}
	require.NoError(t, config.Validate())

	reg, err := config.BoardRegistry()
	require.NoError(t, err)

	// The configured board wins over the built-in of the same name
	res, err := reg.Resolve("ebaz4205", "lab_test")
	require.NoError(t, err)
	assert.Equal(t, board.FlavorSatman, res.Flavor)
	assert.True(t, res.RequiresFSBL)
}

func TestLoad_ComplexConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "zforge.yml")

	// Write complex config with all sections
	complexConfig := `version: "1.0"
output_dir: artifacts
boards:
  - name: coraz7
    variants:
      - name: standalone
      - name: satellite
        description: descriptions/coraz7_sat.json
toolchain:
  firmware:
    command: ["fw-build", "--release"]
    container: zynq-toolchain:latest
  gateware:
    command: ["gw-build"]
  packer:
    command: ["mkbootimage", "--zynq"]
loaders:
  dir: /opt/zforge/loaders
registry:
  url: redis://registry:6379
  farm: lab2
lab:
  lock_server: rpi-hitl:7777
  deploy:
    host: rpi-hitl
    user: hitl
    dir: /srv/boot
  boards:
    zc706-1:
      target: zc706
      power: 192.168.1.31:3272
      runner: ["python", "-m", "hitl.remote", "zc706-1"]
`
	err := os.WriteFile(configPath, []byte(complexConfig), 0644)
	require.NoError(t, err)

	// Load and validate
	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)

	assert.Equal(t, "artifacts", config.OutputDir)
	assert.Equal(t, []string{"fw-build", "--release"}, config.Toolchain.Firmware.Command)
	assert.Equal(t, "zynq-toolchain:latest", config.Toolchain.Firmware.Container)
	assert.Equal(t, []string{"mkbootimage", "--zynq"}, config.Toolchain.Packer.Command)
	assert.Equal(t, "/opt/zforge/loaders", config.Loaders.Dir)

	require.Len(t, config.Boards, 1)
	assert.Equal(t, "coraz7", config.Boards[0].Name)
	assert.Equal(t, "descriptions/coraz7_sat.json", config.Boards[0].Variants[1].Description)

	require.NotNil(t, config.Registry)
	assert.Equal(t, "redis://registry:6379", config.RegistryURL())
	assert.Equal(t, "lab2", config.Farm())

	require.NotNil(t, config.Lab)
	assert.Equal(t, "rpi-hitl:7777", config.Lab.LockServer)
	assert.Equal(t, "hitl", config.Lab.Deploy.User)
	assert.Equal(t, "/srv/boot", config.Lab.Deploy.Dir)
	require.Contains(t, config.Lab.Boards, "zc706-1")
	assert.Equal(t, "zc706", config.Lab.Boards["zc706-1"].Target)
	assert.Equal(t, "192.168.1.31:3272", config.Lab.Boards["zc706-1"].Power)
}

func TestFarm_EnvFallback(t *testing.T) {
	t.Setenv("ZFORGE_FARM", "bench7")

	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
	}
	require.NoError(t, config.Validate())

	assert.Equal(t, "bench7", config.Farm())
}

func TestRegistryURL_EnvFallback(t *testing.T) {
	t.Setenv("ZFORGE_REGISTRY_URL", "redis://fallback:6379")

	config := &Config{
		Version:   "1.0",
		Toolchain: validToolchain(),
		Loaders:   LoadersConfig{Dir: "loaders"},
	}
	require.NoError(t, config.Validate())

	assert.Equal(t, "redis://fallback:6379", config.RegistryURL())
}
