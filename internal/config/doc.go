// Package config loads and validates soundframe's TOML configuration.
//
// Load resolves the config path (explicit flag, then the user config dir,
// then a project-local soundframe.toml), decodes it over Default(), expands
// every path field, and validates the result. The embedded sample file is
// what `soundframe config init` writes.
package config
