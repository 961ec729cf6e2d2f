package web

import (
	"net/http"

	"caritauyuk.id/catalog/internal/services"
)

// layoutData is shared by every page template.
type layoutData struct {
	SiteName  string
	Title     string
	CSRFToken string
	Flash     string
	Error     string
	Admin     *adminBadge
}

type adminBadge struct {
	Name    string
	Email   string
	Initial string
}

type homePage struct {
	layoutData
	Categories []CategoryOption
	Category   string
	Search     string
	Cards      []CardView
	LoadFailed bool
}

type detailPage struct {
	layoutData
	Content DetailView
}

type loginPage struct {
	layoutData
	Email   string
	Next    string
	Message string
}

type adminListPage struct {
	layoutData
	Categories []CategoryOption
	Category   string
	Search     string
	Rows       []AdminRowView
	LoadFailed bool
}

type adminFormPage struct {
	layoutData
	Action     string
	Editing    bool
	Form       contentForm
	Categories []CategoryOption
	Errors     map[string]string
}

func (a *app) layout(r *http.Request, title string) layoutData {
	data := layoutData{
		SiteName:  a.siteName,
		Title:     title,
		CSRFToken: CSRFTokenFromContext(r.Context()),
	}
	if admin, ok := services.AdminSessionFromContext(r.Context()); ok {
		data.Admin = &adminBadge{Name: admin.DisplayName(), Email: admin.Email, Initial: admin.Initial()}
	}
	return data
}

func (a *app) pageTitle(title string) string {
	if title == "" {
		return a.siteName
	}
	return title + " | " + a.siteName
}
