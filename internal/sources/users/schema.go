package users

// File represents the top-level structure of users.yaml
type File struct {
	Users []Entry `yaml:"users"`
}

// Entry is one dashboard account as written in users.yaml
type Entry struct {
	Username     string `yaml:"username"`
	Name         string `yaml:"name,omitempty"`
	Role         string `yaml:"role,omitempty"`
	PasswordHash string `yaml:"password_hash"`
}
