// Package config handles YAML configuration loading with environment
// variable substitution. Configuration files support ${VAR} syntax.
package config
