// Package config loads and merges designsync configuration from multiple
// sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CONFLUENCE_BASE_URL, MODEL_API_KEY, GITHUB_TOKEN, etc.)
//  3. Config file ($XDG_CONFIG_HOME/designsync/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Config.Require] to check that a
// command has the settings it needs, and [Save] to write a config file.
package config
