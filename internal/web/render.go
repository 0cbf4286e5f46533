package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/ops"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "pick", "snapshots"
}

// IndexPageData is the template data for the pick form.
type IndexPageData struct {
	PageData
	Presets       []string
	DefaultCount  int
	MaxCount      int
	Policy        string
	KeyConfigured bool
	Subjects      []snapshot.SubjectInfo
}

// ResultPageData is the template data for a pick result.
type ResultPageData struct {
	PageData
	Result       *ops.PickOutput
	Announcement template.HTML
}

// SnapshotsPageData is the template data for the snapshot listing.
// Without a subject it lists known subjects instead.
type SnapshotsPageData struct {
	PageData
	Subject    string
	Items      []snapshot.Summary
	Pagination ops.Pagination
	Subjects   []snapshot.SubjectInfo
}

// DetailPageData is the template data for a single snapshot.
type DetailPageData struct {
	PageData
	Snapshot *ops.FetchOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Code       string
	Message    string
	Hint       string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"formatTime":  formatTime,
		"formatCount": formatCount,
		"hours":       errors.FormatHours,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"index":     "index.html",
		"result":    "result.html",
		"snapshots": "snapshots.html",
		"detail":    "detail.html",
		"error":     "error.html",
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

func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("template execution error", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation. API
// routes and clients asking for JSON get the error envelope; everyone else
// gets the error page. Causes are logged, never rendered.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	pErr := errors.As(err)
	if pErr == nil {
		pErr = errors.NewInternal(err)
	}
	if pErr.Status >= 500 {
		slog.Error("request failed", "path", req.URL.Path, "code", pErr.Code, "error", err)
	} else {
		slog.Debug("request rejected", "path", req.URL.Path, "code", pErr.Code, "error", err)
	}

	if wantsJSON(req) {
		renderJSON(w, pErr.Status, errorBody(pErr))
		return
	}

	r.renderPageStatus(w, pErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", pErr.Status), ""),
		StatusCode: pErr.Status,
		Code:       string(pErr.Code),
		Message:    pErr.Message,
		Hint:       pErr.Hint,
	})
}

func errorBody(e *errors.PickError) map[string]any {
	body := map[string]any{
		"code":    string(e.Code),
		"message": e.Message,
	}
	if e.Hint != "" {
		body["hint"] = e.Hint
	}
	if e.Code != errors.ErrInternal && len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return map[string]any{"error": body}
}

func wantsJSON(req *http.Request) bool {
	return strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark. Raw HTML in
// the source is dropped by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
)

// escapeMarkdown neutralizes provider-supplied text before it is embedded
// in an announcement.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatCount formats an integer with comma thousands separators.
func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
