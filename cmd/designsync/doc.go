// Designsync keeps GitHub pull requests and Confluence design documents in
// sync.
//
// It reviews a pull request against the design document linked in its
// description and posts the review as a comment, and it folds meeting notes
// into the design document as timestamped update sections.
//
// Usage:
//
//	designsync review acme/payments 42          # review one pull request
//	designsync review https://github.com/acme/payments/pull/42
//	designsync review batch acme/payments 41 42 # review several in sequence
//	designsync meeting --url URL --summary notes.md
//	designsync serve --addr :8080               # webhook + meeting form
//	designsync config init | show
//
// Exit codes: 0 success, 1 review not run (no design document linked),
// 2 usage or configuration error, 3 authentication error, 4 runtime error,
// 5 document version conflict.
package main
