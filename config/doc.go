// Package config provides configuration loading, validation and hot reload for a
// beat-link client. Configuration is YAML; every section has defaults, so a file
// only needs to name the values it changes.
package config
