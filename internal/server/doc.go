// Package server is the HTTP face of designsync.
//
// Routes:
//
//	POST /webhook   GitHub deliveries; pull_request opened, synchronize and
//	                edited start a background review (202)
//	GET  /meeting   a minimal HTML form
//	POST /meeting   JSON or form meeting input, analyzed synchronously
//	GET  /healthz   liveness
//	GET  /metrics   Prometheus
//
// Deliveries are verified against X-Hub-Signature-256 when a webhook secret
// is configured. Background reviews for the same pull request are collapsed
// while one is in flight, and [Server.Wait] blocks until all have finished.
package server
