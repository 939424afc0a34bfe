package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/services"
)

// Profile shows the public profile of uniqueID.
func (a *App) Profile(ctx context.Context, uniqueID string) error {
	u, err := a.profiles.Get(ctx, uniqueID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			fmt.Fprintln(a.out, errStyle.Render("User not found"))
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, renderProfile(u, a.profiles.IsOwn(a.session.Current(), u)))
	return nil
}

// Settings edits the signed-in user's nickname and description.
func (a *App) Settings(ctx context.Context) error {
	s := a.session.Current()
	if !s.Authenticated() {
		fmt.Fprintln(a.out, services.NotSignedIn)
		return nil
	}

	nickname, err := GetWithDefault(a.reader, "Nickname", s.User.Nickname, a.out)
	if err != nil {
		return err
	}
	description, err := GetWithDefault(a.reader, "Description", s.User.Description, a.out)
	if err != nil {
		return err
	}

	form := ProfileForm{Nickname: nickname, Description: description}
	if err := validateForm(form); err != nil {
		fmt.Fprintln(a.out, errStyle.Render(validationMessage(err)))
		return nil
	}

	res := a.profiles.Update(ctx, models.ProfileUpdate{
		Nickname:    form.Nickname,
		Description: form.Description,
		Avatar:      s.User.Avatar,
	})
	a.report(res.OK, "Profile updated", res.Message)
	return nil
}

// Avatar uploads the image at path as the signed-in user's avatar.
func (a *App) Avatar(ctx context.Context, path string) error {
	res := a.profiles.SetAvatar(ctx, path)
	a.report(res.OK, "Avatar updated", res.Message)
	return nil
}

func (a *App) report(ok bool, success, failure string) {
	if ok {
		fmt.Fprintln(a.out, okStyle.Render(success))
		return
	}
	fmt.Fprintln(a.out, errStyle.Render(failure))
}
