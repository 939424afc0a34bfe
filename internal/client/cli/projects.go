package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/services"
)

// Projects lists the signed-in user's projects.
func (a *App) Projects(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}
	list, err := a.projects.List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderProjects(list))
	return nil
}

// AddProject prompts for a title and description and creates the project.
func (a *App) AddProject(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}
	form, ok, err := a.projectForm(models.Project{})
	if err != nil || !ok {
		return err
	}
	res := a.projects.Create(ctx, form.Title, form.Description)
	a.report(res.OK, "Project created", res.Message)
	return nil
}

// EditProject prompts for new values of project id, keeping the current
// ones on empty input.
func (a *App) EditProject(ctx context.Context, id int64) error {
	if !a.requireLogin() {
		return nil
	}
	list, err := a.projects.List(ctx)
	if err != nil {
		return err
	}
	var current *models.Project
	for i := range list {
		if list[i].ID == id {
			current = &list[i]
			break
		}
	}
	if current == nil {
		fmt.Fprintln(a.out, errStyle.Render("Project not found"))
		return nil
	}

	form, ok, err := a.projectForm(*current)
	if err != nil || !ok {
		return err
	}
	res := a.projects.Update(ctx, id, form.Title, form.Description)
	a.report(res.OK, "Project updated", res.Message)
	return nil
}

// DeleteProject removes project id after confirmation.
func (a *App) DeleteProject(ctx context.Context, id int64) error {
	if !a.requireLogin() {
		return nil
	}
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete project #%d? [y/N]", id), a.out)
	if err != nil {
		return err
	}
	if ans := strings.ToLower(answer); ans != "y" && ans != "yes" {
		return nil
	}
	res := a.projects.Delete(ctx, id)
	a.report(res.OK, "Project deleted", res.Message)
	return nil
}

// projectForm reads and validates a project form. ok is false when the
// input was invalid; the reason has already been shown.
func (a *App) projectForm(current models.Project) (ProjectForm, bool, error) {
	title, err := GetWithDefault(a.reader, "Title", current.Title, a.out)
	if err != nil {
		return ProjectForm{}, false, err
	}

	prompt := "Description"
	if current.Description != "" {
		prompt += " (empty keeps the current one)"
	}
	description, err := GetMultiline(a.reader, prompt, a.out)
	if err != nil {
		return ProjectForm{}, false, err
	}
	if description == "" {
		description = current.Description
	}

	form := ProjectForm{Title: title, Description: description}
	if err := validateForm(form); err != nil {
		fmt.Fprintln(a.out, errStyle.Render(validationMessage(err)))
		return ProjectForm{}, false, nil
	}
	return form, true, nil
}

func (a *App) requireLogin() bool {
	if a.isLoggedIn() {
		return true
	}
	fmt.Fprintln(a.out, services.NotSignedIn)
	return false
}
