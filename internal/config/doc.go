// Package config loads application settings from an optional config.yaml and
// SCRY_* environment variables using viper, and validates them with struct
// tags before any component is constructed.
package config
