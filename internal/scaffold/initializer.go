package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/limacina/launcher/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// Files created by Initialize, relative to the target directory.
const (
	ConfigFile = "limacina.yml"
	EnvFile    = ".env"
)

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes limacina.yml and .env into dir.
// If force is true, existing files are replaced.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := writeFiles(dir, files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes existing files if --force was specified
func handleForce(dir string) error {
	for _, name := range []string{ConfigFile, EnvFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			printer.Warning("Removing existing %s...\n", name)
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", name, err)
			}
		}
	}
	return nil
}

// getTemplateFiles reads all template files
func getTemplateFiles() ([]FileInfo, error) {
	config, err := templatesFS.ReadFile("templates/limacina.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read limacina.yml template: %w", err)
	}

	env, err := templatesFS.ReadFile("templates/env.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read .env template: %w", err)
	}

	return []FileInfo{
		{Path: ConfigFile, Content: config, Permissions: 0644},
		{Path: EnvFile, Content: env, Permissions: 0600},
	}, nil
}

// writeFiles writes all template files to disk
func writeFiles(dir string, files []FileInfo) error {
	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles checks that the written limacina.yml is valid YAML
func validateCreatedFiles(dir string) error {
	content, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", ConfigFile, err)
	}

	var yamlData interface{}
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", ConfigFile, err)
	}

	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Success("Initialized Limacina launcher configuration\n")
	printer.Println("\nCreated:")
	printer.Println("  ✓ " + ConfigFile)
	printer.Println("  ✓ " + EnvFile)
	printer.Println("\nNext steps:")
	printer.Println("  1. Fill in the server name and addresses in .env")
	printer.Println("  2. Run 'limacina status' to check the server")
	printer.Println("  3. Run 'limacina start' to initialize the launcher")
}
