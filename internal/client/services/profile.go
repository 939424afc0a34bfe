package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/session"
	"github.com/dmitrijs2005/siteofsites/internal/filex"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
)

// ProfileService reads public profiles and edits the signed-in user's own.
//
// Contract:
//   - Get: public profile with projects; unknown ids match client.ErrNotFound.
//   - Update: replaces nickname, description and avatar; on success the
//     session's user is swapped for the server's copy.
//   - SetAvatar: loads an image file as a data URL and updates only the avatar.
//   - IsOwn: whether the viewer is looking at their own profile.
type ProfileService interface {
	Get(ctx context.Context, uniqueID string) (*models.UserSummary, error)
	Update(ctx context.Context, upd models.ProfileUpdate) session.Result
	SetAvatar(ctx context.Context, path string) session.Result
	IsOwn(viewer session.Session, profile *models.UserSummary) bool
}

type profileService struct {
	api     client.ProfileAPI
	session Session
	log     logging.Logger
}

func NewProfileService(api client.ProfileAPI, s Session, log logging.Logger) ProfileService {
	return &profileService{api: api, session: s, log: log.With("component", "profile")}
}

func (p *profileService) Get(ctx context.Context, uniqueID string) (*models.UserSummary, error) {
	u, err := p.api.UserByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", uniqueID, err)
	}
	return u, nil
}

func (p *profileService) Update(ctx context.Context, upd models.ProfileUpdate) session.Result {
	if !p.session.Current().Authenticated() {
		return session.Result{Message: NotSignedIn}
	}

	u, err := p.api.UpdateProfile(ctx, upd)
	if err != nil {
		p.log.Info(ctx, "profile update rejected", "error", err)
		return outcome(ctx, p.session, err, ProfileUpdateFailed)
	}

	p.session.ReplaceUser(u)
	return session.Result{OK: true}
}

func (p *profileService) SetAvatar(ctx context.Context, path string) session.Result {
	cur := p.session.Current()
	if !cur.Authenticated() {
		return session.Result{Message: NotSignedIn}
	}

	dataURL, err := filex.ReadImageDataURL(path, filex.MaxAvatarBytes)
	if err != nil {
		p.log.Info(ctx, "avatar rejected", "path", path, "error", err)
		return session.Result{Message: err.Error()}
	}

	return p.Update(ctx, models.ProfileUpdate{
		Nickname:    cur.User.Nickname,
		Description: cur.User.Description,
		Avatar:      dataURL,
	})
}

func (p *profileService) IsOwn(viewer session.Session, profile *models.UserSummary) bool {
	return viewer.Authenticated() && profile != nil && viewer.User.ID == profile.ID
}
