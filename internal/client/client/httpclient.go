package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/models"
)

// DefaultTimeout bounds a single round-trip when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewHTTPClient builds a client for the backend at baseURL
// (e.g. "http://127.0.0.1:8000"). Bearer requests take their credential from
// tokens.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) Me(ctx context.Context) (*models.UserSummary, error) {
	var u models.UserSummary
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, authBearer, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", nil, authNone, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", nil, authNone, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/api/auth/logout", nil, authBearer, nil, nil)
}

func (c *HTTPClient) SearchUsers(ctx context.Context, query string) ([]models.UserLite, error) {
	var users []models.UserLite
	q := url.Values{"q": []string{query}}
	if err := c.doRequest(ctx, http.MethodGet, "/api/users/search", q, authNone, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) UserByUniqueID(ctx context.Context, uniqueID string) (*models.UserSummary, error) {
	var u models.UserSummary
	path := "/api/users/by-unique-id/" + pathEscape(uniqueID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, authNone, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.UserSummary, error) {
	var u models.UserSummary
	if err := c.doRequest(ctx, http.MethodPut, "/api/users/profile", nil, authBearer, upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.doRequest(ctx, http.MethodGet, "/api/projects", nil, authBearer, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *HTTPClient) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	var p models.Project
	if err := c.doRequest(ctx, http.MethodPost, "/api/projects", nil, authBearer, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (*models.Project, error) {
	var p models.Project
	path := "/api/projects/" + strconv.FormatInt(id, 10)
	if err := c.doRequest(ctx, http.MethodPut, path, nil, authBearer, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) DeleteProject(ctx context.Context, id int64) error {
	path := "/api/projects/" + strconv.FormatInt(id, 10)
	return c.doRequest(ctx, http.MethodDelete, path, nil, authBearer, nil, nil)
}
