package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckExisting returns an error listing limacina.yml and .env if either
// already exists in dir.
func CheckExisting(dir string) error {
	var existingFiles []string
	for _, name := range []string{ConfigFile, EnvFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			existingFiles = append(existingFiles, name)
		}
	}

	if len(existingFiles) == 0 {
		return nil
	}

	return fmt.Errorf("launcher already initialized\n\nFound existing: %s\n\nUse 'limacina init --force' to reinitialize (this will overwrite existing configuration)",
		strings.Join(existingFiles, ", "))
}
