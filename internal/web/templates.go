// templates.go -- Embedded views and render helpers.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Static serves the embedded assets under /static/.
var Static fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("static filesystem: " + err.Error())
	}
	return sub
}()

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html.tmpl"))

// viewData is the single data shape passed to every view.
type viewData struct {
	DisplayName string
	Email       string
	Status      string // "success" after a completed send
	Message     string // error view only
}

// render executes the named view. Template failures after the first byte
// can't be recovered into an error page, so they are logged only.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name+".html.tmpl", data); err != nil {
		logError(r, "rendering template failed", "template", name, "error", err)
	}
}

// renderError shows the generic error view carrying the failure's message.
// The original sample rendered errors at 200; kept for compatibility.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	h.render(w, r, "error", viewData{Message: err.Error()})
}
