package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/errors"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// LoginPageData is the template data for the login page.
type LoginPageData struct {
	PageData
	Error string
}

// ClaimPageData is the template data for the claim detail page.
type ClaimPageData struct {
	PageData
	Claim        *claim.Claim
	Points       []claim.Point
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"login": "login.html",
		"app":   "app.html",
		"db":    "db.html",
		"claim": "claim.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error page for browser-facing routes.
func (r *Renderer) renderError(w http.ResponseWriter, err error) {
	cErr := asClaimError(err)
	r.renderPageStatus(w, cErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", cErr.Status),
			Version: r.version,
		},
		StatusCode: cErr.Status,
		Message:    cErr.Message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderJSONError writes an error as a JSON body with its mapped HTTP
// status. Every API handler funnels failures through here; nothing
// propagates past the request.
func renderJSONError(w http.ResponseWriter, err error) {
	cErr := asClaimError(err)
	renderJSON(w, cErr.Status, map[string]any{
		"error": cErr.Message,
		"code":  string(cErr.Code),
	})
}

// asClaimError coerces any error into a ClaimError.
func asClaimError(err error) *errors.ClaimError {
	var cErr *errors.ClaimError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}
	return cErr
}

// renderClaimReport builds a markdown report for one claim and converts
// it to HTML using goldmark.
func renderClaimReport(c *claim.Claim, points []claim.Point) template.HTML {
	var md strings.Builder
	fmt.Fprintf(&md, "## Claim %s\n\n", c.ID)
	fmt.Fprintf(&md, "**File:** %s  \n**Saved:** %s\n\n", c.Filename, formatTime(c.SavedAt))

	md.WriteString("### Extracted text\n\n```\n")
	md.WriteString(strings.ReplaceAll(c.Text, "```", "` ` `"))
	md.WriteString("\n```\n\n")

	if c.Entities != "" {
		md.WriteString("### Entities\n\n```\n")
		md.WriteString(strings.ReplaceAll(c.Entities, "```", "` ` `"))
		md.WriteString("\n```\n\n")
	}

	if len(points) > 0 {
		md.WriteString("### Geocoded points\n\n")
		md.WriteString("| Seq | Label | Name | Lat | Lon |\n|---|---|---|---|---|\n")
		for _, p := range points {
			fmt.Fprintf(&md, "| %d | %s | %s | %.6f | %.6f |\n", p.Seq, p.Label, p.Name, p.Lat, p.Lon)
		}
	}

	var buf bytes.Buffer
	if err := reportMarkdown.Convert([]byte(md.String()), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md.String()))
	}
	return template.HTML(buf.String())
}

// reportMarkdown renders GFM so the points table comes out as a table.
var reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
