package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/modal"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/session"
	"github.com/dmitrijs2005/siteofsites/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Login opens the login modal and runs it until it is submitted
// successfully or cancelled.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, session.AlreadySignedIn)
		return nil
	}
	a.modals.OpenLogin()
	return a.runModal(ctx)
}

// Register opens the register modal; otherwise like Login.
func (a *App) Register(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, session.AlreadySignedIn)
		return nil
	}
	a.modals.OpenRegister()
	return a.runModal(ctx)
}

// runModal drives whichever modal is open. After a failed submit the user
// may retry, switch to the other modal or cancel. The modal is closed on
// every exit path.
func (a *App) runModal(ctx context.Context) error {
	defer a.modals.Close()

	for {
		var (
			res session.Result
			err error
		)
		switch a.modals.State() {
		case modal.Login:
			res, err = a.submitLogin(ctx)
		case modal.Register:
			res, err = a.submitRegister(ctx)
		default:
			return nil
		}
		if err != nil {
			return err
		}

		if res.OK {
			if u := a.session.Current().User; u != nil {
				fmt.Fprintln(a.out, okStyle.Render("Welcome, "+u.Nickname+"!"))
			}
			return nil
		}
		fmt.Fprintln(a.out, errStyle.Render(res.Message))

		other := "register"
		if a.modals.State() == modal.Register {
			other = "login"
		}
		choice, err := getSimpleText(a.reader, fmt.Sprintf("[r]etry, [s]witch to %s, [c]ancel", other), a.out)
		if err != nil {
			return err
		}
		switch strings.ToLower(choice) {
		case "r", "retry", "":
		case "s", "switch":
			if a.modals.State() == modal.Login {
				a.modals.SwitchToRegister()
			} else {
				a.modals.SwitchToLogin()
			}
		default:
			return nil
		}
	}
}

func (a *App) submitLogin(ctx context.Context) (session.Result, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return session.Result{}, err
	}
	pw, err := getPassword(a.out, "Enter password")
	if err != nil {
		return session.Result{}, err
	}
	defer common.WipeByteArray(pw)

	form := LoginForm{Email: email, Password: string(pw)}
	if err := validateForm(form); err != nil {
		return session.Result{Message: validationMessage(err)}, nil
	}
	return a.session.Login(ctx, form.Email, form.Password), nil
}

func (a *App) submitRegister(ctx context.Context) (session.Result, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return session.Result{}, err
	}
	nickname, err := getSimpleText(a.reader, "Choose a nickname", a.out)
	if err != nil {
		return session.Result{}, err
	}
	pw, err := getPassword(a.out, "Enter password")
	if err != nil {
		return session.Result{}, err
	}
	defer common.WipeByteArray(pw)
	confirm, err := getPassword(a.out, "Confirm password")
	if err != nil {
		return session.Result{}, err
	}
	defer common.WipeByteArray(confirm)

	form := RegisterForm{Email: email, Nickname: nickname, Password: string(pw), ConfirmPassword: string(confirm)}
	if err := validateForm(form); err != nil {
		return session.Result{Message: validationMessage(err)}, nil
	}
	return a.session.Register(ctx, models.RegisterRequest{
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
		Nickname:        form.Nickname,
	}), nil
}

// Logout ends the session locally even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// WhoAmI shows the signed-in user and what is known about the credential.
func (a *App) WhoAmI(ctx context.Context) error {
	s := a.session.Current()
	if !s.Authenticated() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}

	fmt.Fprintln(a.out, renderProfile(s.User, true))
	if at, ok := a.store.SavedAt(ctx); ok {
		fmt.Fprintln(a.out, dimStyle.Render("Signed in "+at.Local().Format(time.DateTime)))
	}
	if exp, ok := a.session.CredentialExpiry(ctx); ok {
		fmt.Fprintln(a.out, dimStyle.Render("Credential expires "+exp.Local().Format(time.DateTime)))
	}
	return nil
}
