// Package logging builds the structured logger used throughout beat-link from the logging section of the configuration.
package logging
