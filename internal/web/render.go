package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/requestctx"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"home", "detail", "notfound", "admin_login", "admin_list", "admin_form"}

type markdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newMarkdownRenderer() *markdownRenderer {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return &markdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: policy,
	}
}

// Render converts Markdown to sanitised HTML. Raw HTML in the source is dropped by goldmark
// and anything the UGC policy rejects is stripped afterwards.
func (m *markdownRenderer) Render(source string) template.HTML {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(m.policy.SanitizeBytes(buf.Bytes()))
}

type pathBuilder struct {
	base string
}

func (p pathBuilder) join(parts ...string) string {
	return path.Join(append([]string{"/", p.base}, parts...)...)
}

func (p pathBuilder) root() string {
	if p.base == "" {
		return "/"
	}
	return p.base + "/"
}

func (p pathBuilder) content(id string) string {
	return p.join("content", id)
}

type renderer struct {
	pages map[string]*template.Template
	paths pathBuilder
}

func newRenderer(paths pathBuilder) (*renderer, error) {
	funcs := template.FuncMap{
		"path":   func(parts ...string) string { return paths.join(parts...) },
		"static": func(name string) string { return paths.join("static", name) },
		"root":   paths.root,
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.tmpl",
			"templates/partials.tmpl",
			"templates/"+name+".tmpl",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &renderer{pages: pages, paths: paths}, nil
}

// render executes the base layout for page into a buffer first so a template failure never
// leaves a half-written response.
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, page string, status int, data any) {
	tmpl, ok := rd.pages[page]
	if !ok {
		http.Error(w, "template not initialized", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		requestctx.Logger(r.Context()).Error("template execution failed", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func staticHandler() (http.Handler, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(sub)), nil
}
