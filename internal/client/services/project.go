package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/session"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
)

// ProjectService manages the signed-in user's projects. Projects exist
// locally only as the server returned them.
type ProjectService interface {
	List(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, title, description string) session.Result
	Update(ctx context.Context, id int64, title, description string) session.Result
	Delete(ctx context.Context, id int64) session.Result
}

type projectService struct {
	api     client.ProjectAPI
	session Session
	log     logging.Logger
}

func NewProjectService(api client.ProjectAPI, s Session, log logging.Logger) ProjectService {
	return &projectService{api: api, session: s, log: log.With("component", "projects")}
}

func (p *projectService) List(ctx context.Context) ([]models.Project, error) {
	list, err := p.api.ListProjects(ctx)
	if err != nil {
		checkAuth(ctx, p.session, err)
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return list, nil
}

func (p *projectService) Create(ctx context.Context, title, description string) session.Result {
	if _, err := p.api.CreateProject(ctx, models.ProjectInput{Title: title, Description: description}); err != nil {
		p.log.Info(ctx, "project creation rejected", "error", err)
		return outcome(ctx, p.session, err, ProjectCreateFailed)
	}
	return session.Result{OK: true}
}

func (p *projectService) Update(ctx context.Context, id int64, title, description string) session.Result {
	if _, err := p.api.UpdateProject(ctx, id, models.ProjectInput{Title: title, Description: description}); err != nil {
		p.log.Info(ctx, "project update rejected", "id", id, "error", err)
		return outcome(ctx, p.session, err, ProjectUpdateFailed)
	}
	return session.Result{OK: true}
}

func (p *projectService) Delete(ctx context.Context, id int64) session.Result {
	if err := p.api.DeleteProject(ctx, id); err != nil {
		p.log.Info(ctx, "project deletion rejected", "id", id, "error", err)
		return outcome(ctx, p.session, err, ProjectDeleteFailed)
	}
	return session.Result{OK: true}
}
