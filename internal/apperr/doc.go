// Package apperr defines the structured error taxonomy shared by every
// upstream client and orchestrator.
//
// Clients return [*Error] values carrying a [Code] and, where one exists, the
// upstream HTTP status. Orchestrators wrap them with fmt.Errorf and callers
// test for a class of failure with [Is]. [HTTPStatus] maps an error to the
// status the HTTP service answers with.
package apperr
