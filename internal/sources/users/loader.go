package users

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of users.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new users file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the users file
func (l *Loader) Load() (File, error) {
	var f File

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return f, fmt.Errorf("failed to read users file: %w", err)
	}

	data = expandEnv(data)

	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse users yaml: %w", err)
	}

	return f, nil
}

var envRef = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// expandEnv replaces ${VAR} references so hashes can live in the environment.
// Example: password_hash: ${LEAKDESK_ADMIN_HASH}
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}
