package api

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	actionTemplate     = "action.html"
	completionTemplate = "completion.html"
)

type renderer struct {
	templates *template.Template
}

func newRenderer() *renderer {
	funcs := template.FuncMap{
		"rate": formatRate,
	}
	return &renderer{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func formatRate(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

type completionView struct {
	Category   domain.Category
	ActionPath string
}
