package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/app"
	"github.com/shrimpsizemoose/syllabus/internal/models"
)

const (
	flashReviewPosted    = "Thanks, your review was posted."
	flashReviewCancelled = "Your review was cancelled."
)

type reviewFormPage struct {
	Course  *models.Course
	Flashes []string
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(key)))
	if err != nil {
		return 0
	}
	return n
}

func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.PostFormValue(key))) {
	case "1", "on", "true":
		return true
	}
	return false
}

// parseReviewForm leaves unparsable ratings at zero so validation reports
// them as out of range.
func parseReviewForm(r *http.Request) models.ReviewForm {
	return models.ReviewForm{
		Name:               r.PostFormValue("name"),
		Recommend:          formInt(r, "recommend"),
		Difficulty:         formInt(r, "difficulty"),
		Fun:                formInt(r, "fun"),
		Learning:           formInt(r, "learning"),
		Comment:            r.PostFormValue("comment"),
		AttendanceRequired: formBool(r, "attendance_required"),
		Assessment:         r.PostFormValue("assessment"),
	}
}

func (h *Handler) HandleReviewForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		if !notFound(w, err) {
			serverError(w, r, err)
		}
		return
	}

	h.render(w, r, "add_review.html", reviewFormPage{
		Course:  course,
		Flashes: h.flashes.Pop(w, r),
	})
}

func (h *Handler) HandleSubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}
	ctx := r.Context()

	if _, err := h.service.GetCourse(ctx, id); err != nil {
		if !notFound(w, err) {
			serverError(w, r, err)
		}
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	formURL := courseURL(id) + "/add"
	if err := h.service.CheckSubmissionRate(ctx, clientAddr(r, h.service.Config.Server.TrustProxy)); err != nil {
		h.redirect(w, r, formURL, err.Error())
		return
	}

	_, err := h.service.SubmitReview(ctx, id, parseReviewForm(r))
	var verr *app.ValidationError
	switch {
	case err == nil:
		h.redirect(w, r, courseURL(id), flashReviewPosted)
	case errors.As(err, &verr):
		h.redirect(w, r, formURL, "Please fix: "+verr.Error())
	case errors.Is(err, app.ErrDuplicateActiveReview):
		h.redirect(w, r, courseURL(id), err.Error())
	case notFound(w, err):
	default:
		serverError(w, r, err)
	}
}

func (h *Handler) HandleCancelReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	_, err := h.service.CancelReview(r.Context(), id, r.PostFormValue("name"))
	h.afterCancel(w, r, courseURL(id), err)
}

func (h *Handler) HandleCancelReviewByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Review not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	review, err := h.service.CancelReviewByID(r.Context(), id, r.PostFormValue("name"))
	if review == nil {
		if err == nil {
			err = errors.New("cancel returned no review")
		}
		if !notFound(w, err) {
			serverError(w, r, err)
		}
		return
	}
	h.afterCancel(w, r, courseURL(review.CourseID), err)
}

func (h *Handler) afterCancel(w http.ResponseWriter, r *http.Request, target string, err error) {
	var verr *app.ValidationError
	switch {
	case err == nil:
		h.redirect(w, r, target, flashReviewCancelled)
	case errors.As(err, &verr):
		h.redirect(w, r, target, "Please fix: "+verr.Error())
	case errors.Is(err, app.ErrNoActiveReview):
		logger.Debug.Printf("Nothing to cancel at %s", r.URL.Path)
		h.redirect(w, r, target, "You have no active review to cancel.")
	case notFound(w, err):
	default:
		serverError(w, r, err)
	}
}
