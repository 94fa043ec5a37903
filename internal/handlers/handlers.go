package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/app"
)

type Handler struct {
	service   *app.Service
	templates *template.Template
	flashes   *Flashes
}

func New(service *app.Service) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	flashes, err := NewFlashes(service.Config.Session.Name, service.Config.Session.Secret)
	if err != nil {
		return nil, err
	}

	return &Handler{
		service:   service,
		templates: templates,
		flashes:   flashes,
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /search", h.HandleSearch)
	mux.HandleFunc("GET /course/{id}", h.HandleCourse)
	mux.HandleFunc("GET /course/{id}/page/{page}", h.HandleCourse)
	mux.HandleFunc("GET /course/{id}/add", h.HandleReviewForm)
	mux.HandleFunc("POST /course/{id}/add", h.HandleSubmitReview)
	mux.HandleFunc("POST /course/{id}/cancel", h.HandleCancelReview)
	mux.HandleFunc("POST /review/{id}/cancel", h.HandleCancelReviewByID)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// notFound answers with plain text, matching ErrCourseNotFound and
// ErrReviewNotFound.
func notFound(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, app.ErrCourseNotFound):
		http.Error(w, "Course not found", http.StatusNotFound)
	case errors.Is(err, app.ErrReviewNotFound):
		http.Error(w, "Review not found", http.StatusNotFound)
	default:
		return false
	}
	return true
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url, flash string) {
	if flash != "" {
		if err := h.flashes.Add(w, r, flash); err != nil {
			logger.Error.Printf("Failed to store flash message: %v", err)
		}
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// clientAddr is the throttle key for a request: the peer address, or the
// first X-Forwarded-For hop when the proxy in front is trusted.
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func courseURL(id int64) string {
	return fmt.Sprintf("/course/%d", id)
}
