package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/metrics"
	"github.com/shrimpsizemoose/syllabus/internal/models"
	"github.com/shrimpsizemoose/syllabus/internal/store"
)

const PageSize = 50

type Pagination struct {
	Page    int
	Pages   int
	Total   int
	Offset  int
	Limit   int
	HasPrev bool
	HasNext bool
}

// Paginate slices total rows into pages of size. Pages are 1-based and
// anything below 1 is treated as the first page. A page past the end gets an
// Offset of total, so it selects no rows.
func Paginate(total, page, size int) Pagination {
	if page < 1 {
		page = 1
	}
	pages := (total + size - 1) / size

	p := Pagination{
		Page:    page,
		Pages:   pages,
		Total:   total,
		Offset:  total,
		Limit:   size,
		HasPrev: page > 1,
	}
	// compare page numbers, not row offsets: page*size overflows for huge pages
	if page <= pages {
		p.Offset = (page - 1) * size
		p.HasNext = page < pages
	}
	return p
}

type ReviewPage struct {
	Pagination
	Reviews []models.Review
}

func (s *Service) ListActiveReviews(ctx context.Context, courseID int64, minRecommend *int, page int) (*ReviewPage, error) {
	total, err := s.Store.CountActiveReviews(ctx, courseID, minRecommend)
	if err != nil {
		return nil, err
	}

	p := Paginate(total, page, PageSize)
	reviews := []models.Review{}
	if p.Offset < total {
		reviews, err = s.Store.ListActiveReviews(ctx, courseID, minRecommend, p.Limit, p.Offset)
		if err != nil {
			return nil, err
		}
	}

	return &ReviewPage{Pagination: p, Reviews: reviews}, nil
}

func (s *Service) AverageRatings(ctx context.Context, courseID int64) (*models.RatingAverages, error) {
	return s.Store.AverageRatings(ctx, courseID)
}

// CheckSubmissionRate fails with ErrThrottled once client exceeds the
// configured submission rate. Throttle backend errors are logged and let
// through.
func (s *Service) CheckSubmissionRate(ctx context.Context, client string) error {
	ok, err := s.Throttle.Allow(ctx, client)
	if err != nil {
		logger.Error.Printf("Throttle check failed for %s: %v", client, err)
		return nil
	}
	if !ok {
		metrics.ReviewSubmissionsTotal.WithLabelValues("throttled").Inc()
		return ErrThrottled
	}
	return nil
}

func (s *Service) SubmitReview(ctx context.Context, courseID int64, form models.ReviewForm) (*models.Review, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	form.Normalize()
	if err := form.Validate(); err != nil {
		metrics.ReviewSubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, newValidationError(err)
	}

	review := &models.Review{
		CourseID:           courseID,
		UserID:             UserID(form.Name),
		Recommend:          form.Recommend,
		Difficulty:         form.Difficulty,
		Fun:                form.Fun,
		Learning:           form.Learning,
		Comment:            form.Comment,
		AttendanceRequired: form.AttendanceRequired,
		Assessment:         form.Assessment,
		CreatedAt:          s.now().UTC().Unix(),
		Active:             true,
	}

	if err := s.Store.CreateReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			metrics.ReviewSubmissionsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateActiveReview
		}
		return nil, err
	}

	metrics.ReviewSubmissionsTotal.WithLabelValues("created").Inc()
	metrics.RatingHistogram.WithLabelValues("recommend").Observe(float64(review.Recommend))
	metrics.RatingHistogram.WithLabelValues("difficulty").Observe(float64(review.Difficulty))
	metrics.RatingHistogram.WithLabelValues("fun").Observe(float64(review.Fun))
	metrics.RatingHistogram.WithLabelValues("learning").Observe(float64(review.Learning))

	logger.Info.Printf("Review %d created for course %d by %s", review.ID, courseID, review.UserID)
	return review, nil
}

func requireName(name string) (string, error) {
	form := models.ReviewForm{Name: name}
	form.Normalize()
	if form.Name == "" {
		return "", &ValidationError{Fields: []FieldError{{Field: "name", Error: "is required"}}}
	}
	return form.Name, nil
}

// CancelReview retracts the newest active review name left on courseID.
func (s *Service) CancelReview(ctx context.Context, courseID int64, name string) (*models.Review, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	review, err := s.Store.DeactivateReview(ctx, courseID, UserID(name), s.purgeInactive())
	if err != nil {
		return nil, err
	}
	return s.cancelled(review)
}

// CancelReviewByID retracts reviewID on behalf of name. Reviews owned by
// somebody else report ErrNoActiveReview, same as already retracted ones.
// Once the review is known to exist it is returned alongside any error so
// callers can find its course.
func (s *Service) CancelReviewByID(ctx context.Context, reviewID int64, name string) (*models.Review, error) {
	existing, err := s.Store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("review %d: %w", reviewID, ErrReviewNotFound)
	}

	name, err = requireName(name)
	if err != nil {
		return existing, err
	}

	review, err := s.Store.DeactivateReviewByID(ctx, reviewID, UserID(name), s.purgeInactive())
	if err != nil {
		return nil, err
	}
	if review == nil {
		metrics.ReviewCancellationsTotal.WithLabelValues("not_found").Inc()
		return existing, ErrNoActiveReview
	}
	return s.cancelled(review)
}

func (s *Service) cancelled(review *models.Review) (*models.Review, error) {
	if review == nil {
		metrics.ReviewCancellationsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNoActiveReview
	}
	metrics.ReviewCancellationsTotal.WithLabelValues("cancelled").Inc()
	logger.Info.Printf("Review %d cancelled for course %d by %s", review.ID, review.CourseID, review.UserID)
	return review, nil
}
