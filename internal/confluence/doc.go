// Package confluence is a minimal client for the Confluence Cloud REST v2
// API covering what designsync needs: read a page with its storage body and
// version, and write a new version with optimistic concurrency.
//
// Writes send version CurrentVersion+1. When another writer got there first
// the server answers 409 and [Client.Update] returns a VERSION_CONFLICT
// [apperr.Error]; the caller decides whether to re-read and try again.
package confluence
