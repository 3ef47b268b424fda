// Package cli wires together the Cobra command tree for the designsync
// binary.
//
// It defines the root command and all subcommands (review, meeting, serve,
// config, version), binds flags, loads configuration, builds the upstream
// clients and returns deterministic exit codes for scripting.
package cli
