// Package cli constructs the rebasebot command-line interface, wiring the
// Cobra command hierarchy, the Viper configuration loader with embedded
// defaults, and structured logging for the rebase and scenario-tools commands.
package cli
