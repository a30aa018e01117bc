package units

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

// unitName accepts systemd unit names only, so they are safe to pass to systemctl.
var unitName = regexp.MustCompile(`^[A-Za-z0-9@._:-]+$`)

// Load reads services.yaml and returns the monitored units in file order.
func Load(path string) ([]domain.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read services file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse services yaml: %w", err)
	}

	return Map(f)
}

// Map validates the entries of f. A unit without a suffix gets ".service".
func Map(f File) ([]domain.Unit, error) {
	seen := make(map[string]struct{}, len(f.Services))
	out := make([]domain.Unit, 0, len(f.Services))

	for _, e := range f.Services {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		if !unitName.MatchString(name) || strings.HasPrefix(name, "-") {
			return nil, fmt.Errorf("invalid unit name %q", name)
		}
		if !strings.Contains(name, ".") {
			name += ".service"
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		display := strings.TrimSpace(e.DisplayName)
		if display == "" {
			display = name
		}
		desc := strings.TrimSpace(e.Description)
		if desc == "" {
			desc = "Unknown service"
		}

		out = append(out, domain.Unit{Name: name, DisplayName: display, Description: desc})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid services found in services file")
	}
	return out, nil
}
