// Package client talks to the Site of Sites backend over its fixed REST/JSON
// contract.
//
// # Overview
//
// The package provides:
//  1. Narrow, consumer-shaped interfaces (AuthAPI, SearchAPI, ProfileAPI,
//     ProjectAPI) and their union Client.
//  2. HTTPClient, the net/http implementation. It reads the bearer credential
//     from an injected TokenSource on every request, so the credential lives
//     in exactly one place (the token store).
//
// # Error Handling
//
// Failures are reported with sentinel errors that callers match with
// errors.Is: ErrUnavailable (transport), ErrUnauthorized (401) and
// ErrNotFound (404). Every non-2xx response is an *APIError carrying the
// server's "detail" message; use errors.As to read it, or Detail to get it
// with a fallback.
//
// # Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honour cancellation/timeouts.
package client
