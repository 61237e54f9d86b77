// Package config loads service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (a .env file in the working directory is loaded
// first and never overrides variables already set). Secret-bearing fields
// may hold secretref: references, which are resolved after layering. The
// result is validated before use.
package config
