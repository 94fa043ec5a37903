package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"date": func(ts int64) string {
			return time.Unix(ts, 0).UTC().Format("2006-01-02")
		},
		"avg": func(v *float64) string {
			if v == nil {
				return "n/a"
			}
			return fmt.Sprintf("%.2f", *v)
		},
		"stars": func(n int) string {
			if n < 0 {
				n = 0
			}
			return strings.Repeat("★", n) + strings.Repeat("☆", max(5-n, 0))
		},
		"add":   func(a, b int) int { return a + b },
		"scale": func() []int { return []int{1, 2, 3, 4, 5} },
		"list":  func(items ...string) []string { return items },
	}

	return template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
}

// render executes into a buffer first so a template error still yields a
// clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error.Printf("Failed to render %s for %s: %v", name, r.URL.Path, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error.Printf("Failed to write response for %s: %v", r.URL.Path, err)
	}
}
