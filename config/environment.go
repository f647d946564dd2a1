package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
)

var environmentAliases = map[string]string{
	"dev":  environmentDevelopment,
	"prod": environmentProduction,
}

// AppEnvironment reads the application environment from APP_ENV, defaulting
// to development. Aliases are normalised to their canonical identifier.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// ResolveConfigPath selects an environment specific configuration file when
// one exists next to the default path, e.g. config/config.production.yml for
// APP_ENV=production. An explicitly overridden path always wins.
func ResolveConfigPath(path, defaultPath string) string {
	if path != "" && path != defaultPath {
		return path
	}
	if path == "" {
		path = defaultPath
	}

	env := AppEnvironment()
	if env == environmentDevelopment {
		return path
	}
	envPath := strings.TrimSuffix(defaultPath, ".yml") + "." + env + ".yml"
	if _, err := os.Stat(envPath); err == nil {
		return envPath
	}
	return path
}
