// Package github wraps go-github with the two calls designsync makes against
// a pull request: read its metadata and diff, and post a top-level comment.
//
// Errors come back as [apperr.Error] values so callers can tell a missing
// pull request from bad credentials or a rate limit. Reads and comment posts
// go through the retry policy.
package github
