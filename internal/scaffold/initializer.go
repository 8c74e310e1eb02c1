// Package scaffold creates a starter zforge project: a commented
// zforge.yml, placeholder toolchain scripts and the loaders directory
// layout the composer expects.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/zforge/internal/config"
)

const configTemplate = `# zforge build farm configuration
version: "1.0"

# Artifact sets land in <output_dir>/<target>/<variant>/
output_dir: build

toolchain:
  firmware:
    # Must produce <flavor>.bin and <flavor>.elf in the -o directory.
    command: ["./scripts/build-firmware.sh"]
    # Run inside a container instead of locally:
    # container: artiq/zynq-toolchain:latest
  gateware:
    # Must produce top.bit in the -o directory.
    command: ["./scripts/build-gateware.sh"]
  # packer defaults to mkbootimage

loaders:
  # <dir>/<target>/szl.elf, plus <dir>/<target>/fsbl.elf for FSBL targets
  dir: loaders

# Farm-wide build registry (or set ZFORGE_REGISTRY_URL)
# registry:
#   url: redis://localhost:6379
#   farm: default

# Hardware-in-the-loop lab
# lab:
#   lock_server: lockd.lab:7900
#   deploy:
#     host: deploy.lab
#     user: artiq
#     dir: /srv/boards
#   boards:
#     zc706-1:
#       target: zc706
#       power: relay.lab:5000
#       runner: ["./scripts/hil-tests.sh"]
`

const firmwareScriptTemplate = `#!/bin/sh
# Firmware build entry point. zforge invokes this as:
#
#   build-firmware.sh -t <target> -f <flavor> (-V <variant> | -c <description.json>) -o <dir>
#
# and expects <flavor>.bin and <flavor>.elf in the output directory.
echo "build-firmware.sh: replace this placeholder with your firmware build" >&2
exit 1
`

const gatewareScriptTemplate = `#!/bin/sh
# Gateware build entry point. zforge invokes this as:
#
#   build-gateware.sh -t <target> (-V <variant> | -c <description.json>) -o <dir>
#
# and expects top.bit in the output directory.
echo "build-gateware.sh: replace this placeholder with your gateware build" >&2
exit 1
`

const loadersReadmeTemplate = `# Loader stages

zforge expects prebuilt loader images here, one directory per target:

    loaders/
      zc706/
        szl.elf    # secondary program loader
        fsbl.elf   # vendor first-stage boot loader
      kasli_soc/
        szl.elf

szl.elf is required for every target; fsbl.elf only for targets that also
boot through the vendor FSBL (zc706).
`

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the zforge project structure.
// If force is true, it will remove an existing zforge.yml first.
func Initialize(force bool) error {
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	if err := createDirectories(); err != nil {
		return err
	}

	if err := writeFiles(templateFiles()); err != nil {
		return err
	}

	return validateCreatedFiles()
}

// handleForce removes the existing configuration if --force was specified
func handleForce() error {
	if _, err := os.Stat(config.DefaultPath); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", config.DefaultPath)
		if err := os.Remove(config.DefaultPath); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultPath, err)
		}
	}
	return nil
}

// templateFiles lists everything init writes
func templateFiles() []FileInfo {
	return []FileInfo{
		{Path: config.DefaultPath, Content: []byte(configTemplate), Permissions: 0644},
		{Path: filepath.Join("scripts", "build-firmware.sh"), Content: []byte(firmwareScriptTemplate), Permissions: 0755},
		{Path: filepath.Join("scripts", "build-gateware.sh"), Content: []byte(gatewareScriptTemplate), Permissions: 0755},
		{Path: filepath.Join("loaders", "README.md"), Content: []byte(loadersReadmeTemplate), Permissions: 0644},
	}
}

// createDirectories creates the necessary directory structure
func createDirectories() error {
	for _, dir := range []string{"scripts", "loaders"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// writeFiles writes all template files to disk
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written config through the real parser,
// so a template drifting out of sync with the schema fails init loudly.
func validateCreatedFiles() error {
	if _, err := config.Load(config.DefaultPath); err != nil {
		return fmt.Errorf("created %s does not validate: %w", config.DefaultPath, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized zforge project!")
	fmt.Println("\nCreated:")
	fmt.Println("  ✓ zforge.yml")
	fmt.Println("  ✓ scripts/build-firmware.sh")
	fmt.Println("  ✓ scripts/build-gateware.sh")
	fmt.Println("  ✓ loaders/README.md")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point toolchain.firmware/gateware at your real build commands")
	fmt.Println("  2. Drop loader images under loaders/<target>/")
	fmt.Println("  3. Run 'zforge boards' to see the target matrix")
	fmt.Println("  4. Run 'zforge build <target>/<variant>' to build a pair")
}
