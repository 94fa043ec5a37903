package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/syllabus/internal/app"
	"github.com/shrimpsizemoose/syllabus/internal/models"
)

type courseListPage struct {
	Title   string
	Search  bool
	Filter  models.CourseFilter
	Courses []models.Course
	Flashes []string
}

type coursePage struct {
	Course       *models.Course
	Averages     *models.RatingAverages
	Reviews      *app.ReviewPage
	MinRecommend int
	Flashes      []string
}

// PageURL links to page n keeping the recommendation filter.
func (p coursePage) PageURL(n int) string {
	u := fmt.Sprintf("/course/%d/page/%d", p.Course.ID, n)
	if p.MinRecommend > 0 {
		u += "?min_recommend=" + strconv.Itoa(p.MinRecommend)
	}
	return u
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}

	h.render(w, r, "index.html", courseListPage{
		Title:   "Courses",
		Courses: courses,
		Flashes: h.flashes.Pop(w, r),
	})
}

// searchFilter reads the query string; grade is accepted as an alias of
// year.
func searchFilter(q url.Values) models.CourseFilter {
	year := strings.TrimSpace(q.Get("year"))
	if year == "" {
		year = strings.TrimSpace(q.Get("grade"))
	}
	return models.CourseFilter{
		Code:        strings.TrimSpace(q.Get("code")),
		Title:       strings.TrimSpace(q.Get("title")),
		Area:        strings.TrimSpace(q.Get("area")),
		Year:        year,
		Schedule:    strings.TrimSpace(q.Get("schedule")),
		OrderByCode: true,
	}
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	filter := searchFilter(r.URL.Query())

	courses, err := h.service.SearchCourses(r.Context(), filter)
	if err != nil {
		serverError(w, r, err)
		return
	}

	h.render(w, r, "index.html", courseListPage{
		Title:   "Search results",
		Search:  true,
		Filter:  filter,
		Courses: courses,
		Flashes: h.flashes.Pop(w, r),
	})
}

// minRecommend accepts min_rating or min_recommend; anything outside 1..5
// means no filter.
func minRecommend(q url.Values) int {
	raw := q.Get("min_rating")
	if raw == "" {
		raw = q.Get("min_recommend")
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}

func (h *Handler) HandleCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}

	page := 1
	if raw := r.PathValue("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page = n
	}

	ctx := r.Context()
	course, err := h.service.GetCourse(ctx, id)
	if err != nil {
		if !notFound(w, err) {
			serverError(w, r, err)
		}
		return
	}

	data := coursePage{Course: course, MinRecommend: minRecommend(r.URL.Query())}

	var filter *int
	if data.MinRecommend > 0 {
		filter = &data.MinRecommend
	}
	data.Reviews, err = h.service.ListActiveReviews(ctx, id, filter, page)
	if err != nil {
		serverError(w, r, err)
		return
	}
	data.Averages, err = h.service.AverageRatings(ctx, id)
	if err != nil {
		serverError(w, r, err)
		return
	}

	data.Flashes = h.flashes.Pop(w, r)
	h.render(w, r, "course.html", data)
}
