package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfig names the environment variable that pins the config file.
const EnvConfig = "VIDVAULT_CONFIG"

// ErrNotFound is returned by Discover when no config file exists in any search location.
var ErrNotFound = errors.New("config not found")

// DefaultPath is where 'config init' writes: $XDG_CONFIG_HOME/vidvault/config.toml.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base, err = xdg, nil
	}
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(base, "vidvault", "config.toml")
}

// SearchPaths lists the locations Discover tries, most specific first.
func SearchPaths() []string {
	return []string{"config.toml", DefaultPath(), "/etc/vidvault/config.toml"}
}

// Discover returns the config file named by VIDVAULT_CONFIG, or the first of
// SearchPaths that exists. A pinned file that is missing is an error, not a
// fallthrough.
func Discover() (string, error) {
	if pinned := os.Getenv(EnvConfig); pinned != "" {
		if _, err := os.Stat(pinned); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, pinned, err)
		}
		return pinned, nil
	}

	candidates := SearchPaths()
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (checked %s)", ErrNotFound, strings.Join(candidates, ", "))
}
