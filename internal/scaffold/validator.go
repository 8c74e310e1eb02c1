package scaffold

import (
	"fmt"
	"os"

	"github.com/dyluth/zforge/internal/config"
)

// CheckExisting checks if zforge.yml already exists.
// Returns an error if it does, nil otherwise.
func CheckExisting() error {
	if _, err := os.Stat(config.DefaultPath); err == nil {
		return fmt.Errorf(`project already initialized

Found existing: %s

Use 'zforge init --force' to reinitialize (this will overwrite existing configuration)`, config.DefaultPath)
	}
	return nil
}
