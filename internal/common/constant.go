// Package common contains shared constants and sentinel errors used across
// the client packages.
package common

// AccessTokenKey is the single well-known key the credential is stored under.
const AccessTokenKey = "access_token"

// SavedAtKey records when the credential was last written (RFC 3339).
const SavedAtKey = "access_token_saved_at"

const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerScheme            = "Bearer"
)
