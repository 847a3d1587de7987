package config

import (
	"os"
	"strings"
)

// Environment is the deployment the process runs in
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment reads ENV, with CI=true taking precedence. Unknown or empty
// values mean development.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}
	return ParseEnvironment(os.Getenv("ENV"))
}

// ParseEnvironment maps a name onto a known Environment.
func ParseEnvironment(name string) Environment {
	switch env := Environment(strings.ToLower(strings.TrimSpace(name))); env {
	case Production, Test, CI:
		return env
	case "prod":
		return Production
	default:
		return Development
	}
}

func (e Environment) IsProduction() bool { return e == Production }

func (e Environment) IsDevelopment() bool { return e == Development }

// StructuredLogs reports whether logs should be JSON for a collector rather
// than console text.
func (e Environment) StructuredLogs() bool {
	return e == Production || e == CI
}

// RequiresSecrets reports whether credentials must be supplied explicitly
// instead of falling back to local defaults.
func (e Environment) RequiresSecrets() bool {
	return e == Production || e == CI
}

// ReadsSecretFiles reports whether mounted Docker secrets are consulted. CI
// injects everything through the environment.
func (e Environment) ReadsSecretFiles() bool {
	return e != CI
}
