package units

// File represents the top-level structure of services.yaml
type File struct {
	Services []Entry `yaml:"services"`
}

// Entry is one monitored systemd unit
type Entry struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name,omitempty"`
	Description string `yaml:"description,omitempty"`
}
