// Package services contains the client's application services for profiles
// and projects. Both report user-facing outcomes as session.Result and hand
// authorization failures to the session so it can drop the credential.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/session"
)

// Fallback messages used when the server gives no detail.
const (
	ProfileUpdateFailed   = "Profile update failed"
	ProjectCreateFailed   = "Project creation failed"
	ProjectUpdateFailed   = "Project update failed"
	ProjectDeleteFailed   = "Project deletion failed"
	NotSignedIn           = "Sign in first"
	SessionExpiredMessage = "Session expired, please sign in again"
)

// Session is the part of session.Manager the services rely on.
type Session interface {
	Current() session.Session
	ReplaceUser(user *models.UserSummary) bool
	Invalidate(ctx context.Context, reason string)
}

// checkAuth invalidates the session when err is an authorization error and
// reports whether it did.
func checkAuth(ctx context.Context, s Session, err error) bool {
	if errors.Is(err, client.ErrUnauthorized) {
		s.Invalidate(ctx, "request rejected as unauthorized")
		return true
	}
	return false
}

// outcome turns a failed mutation into a Result.
func outcome(ctx context.Context, s Session, err error, fallback string) session.Result {
	if checkAuth(ctx, s, err) {
		return session.Result{Message: SessionExpiredMessage}
	}
	return session.Result{Message: client.Detail(err, fallback)}
}
