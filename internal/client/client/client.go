package client

import (
	"context"

	"github.com/dmitrijs2005/siteofsites/internal/client/models"
)

// TokenSource yields the current bearer credential; "" means anonymous.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AuthAPI is what the session manager needs.
type AuthAPI interface {
	Me(ctx context.Context) (*models.UserSummary, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
}

// SearchAPI is what the search engine needs.
type SearchAPI interface {
	SearchUsers(ctx context.Context, query string) ([]models.UserLite, error)
}

type ProfileAPI interface {
	UserByUniqueID(ctx context.Context, uniqueID string) (*models.UserSummary, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.UserSummary, error)
}

type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

type Client interface {
	AuthAPI
	SearchAPI
	ProfileAPI
	ProjectAPI
}
