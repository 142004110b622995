// Package ui holds the bubbletea view models for the reference client:
// the login form, the notification feed, and the chat contact list. The
// engine never imports this package.
package ui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/craftlink/craftlink/internal/model"
)

// Login collects the identity and API token for a new session.
type Login struct {
	form *huh.Form

	role   string
	userID string
	token  string
}

// NewLogin builds the login form.
func NewLogin() *Login {
	l := &Login{}
	l.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sign in as").
				Options(
					huh.NewOption("User", string(model.RoleUser)),
					huh.NewOption("Company", string(model.RoleCompany)),
					huh.NewOption("Craftsman", string(model.RoleCraftsman)),
					huh.NewOption("Admin", string(model.RoleAdmin)),
				).
				Value(&l.role),
			huh.NewInput().
				Title("User ID").
				Validate(func(s string) error {
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return fmt.Errorf("user ID must be a number")
					}
					return nil
				}).
				Value(&l.userID),
			huh.NewInput().
				Title("API token").
				EchoMode(huh.EchoModePassword).
				Value(&l.token),
		),
	)
	return l
}

// Init starts the form.
func (l *Login) Init() tea.Cmd {
	return l.form.Init()
}

// Update delegates to the form.
func (l *Login) Update(msg tea.Msg) tea.Cmd {
	mdl, cmd := l.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		l.form = f
	}
	return cmd
}

// View renders the form.
func (l *Login) View() string {
	return l.form.View()
}

// Done reports whether the form was completed.
func (l *Login) Done() bool {
	return l.form.State == huh.StateCompleted
}

// Aborted reports whether the form was cancelled.
func (l *Login) Aborted() bool {
	return l.form.State == huh.StateAborted
}

// Identity returns the collected identity. Only valid once Done.
func (l *Login) Identity() model.Identity {
	id, _ := strconv.ParseInt(l.userID, 10, 64)
	return model.Identity{Role: model.Role(l.role), UserID: id}
}

// Token returns the collected API token. Only valid once Done.
func (l *Login) Token() string {
	return l.token
}
