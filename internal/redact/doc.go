// Package redact removes secrets from pull-request diffs and meeting text
// before either is sent to a language model.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS keys, bearer and basic credentials, connection
// strings with passwords, and provider tokens (GitHub, Atlassian, Slack,
// OpenAI, Anthropic).
//
// [Diff] also applies a path policy: file sections whose paths match
// configured globs are replaced wholesale rather than scanned.
package redact
