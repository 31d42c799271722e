package renderer

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed views
var views embed.FS

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New creates a new TemplateRenderer with pre-parsed templates
func New() *TemplateRenderer {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	r.parseTemplates()
	return r
}

func (t *TemplateRenderer) parseTemplates() {
	// Helper to parse layout + page + confirm dialog partial
	parse := func(name, pageFile string) {
		t.Templates[name] = template.Must(template.ParseFS(views,
			"views/layouts/base.html",
			"views/partials/confirm_dialog.html",
			"views/pages/"+pageFile,
		))
	}

	parse("admin", "admin.html")
	parse("shares", "shares.html")
	parse("gallery", "gallery.html")
	parse("enter_password", "enter_password.html")
	parse("login", "login.html")

	// Partials
	t.Templates["share_link"] = template.Must(template.ParseFS(views, "views/partials/share_link.html"))
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"share_link": true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	// Templates that define their own named block execute that block directly
	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	// All other templates (pages with layout) execute the "base" block
	return tmpl.ExecuteTemplate(w, "base", data)
}
