// Package config loads the scanpool configuration from a YAML file,
// environment overrides, and built-in defaults.
package config
