package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/syllabus/internal/models"
	"github.com/shrimpsizemoose/syllabus/internal/store/sqlite"
	"github.com/shrimpsizemoose/syllabus/migrations"
)

type fixture struct {
	svc      *Service
	ctx      context.Context
	courseID int64
	clock    time.Time
}

func setupService(t *testing.T, retention string) *fixture {
	s, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations(migrations.FS))

	ctx := context.Background()
	for _, c := range []models.Course{
		{Code: "FG20204", Title: "Linear Algebra", Area: "Math", Year: "1", Schedule: "Mon1,2"},
		{Code: "FG10101", Title: "Intro to Economics", Area: "Economics", Year: "2", Schedule: "Tue3"},
	} {
		_, err := s.InsertCourse(ctx, &c)
		require.NoError(t, err)
	}
	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)

	cfg := &Config{}
	cfg.Reviews.Retention = retention

	f := &fixture{
		svc:      New(cfg, s, nil),
		ctx:      ctx,
		courseID: courses[1].ID, // FG20204
		clock:    time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	t.Cleanup(func() { f.svc.Close() })
	return f
}

func aliceForm(recommend int) models.ReviewForm {
	return models.ReviewForm{
		Name:       "Alice",
		Recommend:  recommend,
		Difficulty: 3,
		Fun:        4,
		Learning:   5,
		Comment:    "great",
	}
}

func (f *fixture) activeCount(t *testing.T) int {
	page, err := f.svc.ListActiveReviews(f.ctx, f.courseID, nil, 1)
	require.NoError(t, err)
	return page.Total
}

func TestPaginate(t *testing.T) {
	testCases := []struct {
		name  string
		total int
		page  int
		want  Pagination
	}{
		{"empty", 0, 1, Pagination{Page: 1, Pages: 0, Total: 0, Offset: 0, Limit: 50}},
		{"single partial page", 7, 1, Pagination{Page: 1, Pages: 1, Total: 7, Offset: 0, Limit: 50}},
		{"exactly one page", 50, 1, Pagination{Page: 1, Pages: 1, Total: 50, Offset: 0, Limit: 50}},
		{"first of two", 51, 1, Pagination{Page: 1, Pages: 2, Total: 51, Offset: 0, Limit: 50, HasNext: true}},
		{"second of two", 51, 2, Pagination{Page: 2, Pages: 2, Total: 51, Offset: 50, Limit: 50, HasPrev: true}},
		{"middle page", 120, 2, Pagination{Page: 2, Pages: 3, Total: 120, Offset: 50, Limit: 50, HasPrev: true, HasNext: true}},
		{"beyond last page", 10, 3, Pagination{Page: 3, Pages: 1, Total: 10, Offset: 10, Limit: 50, HasPrev: true}},
		{"huge page number", 3, 200000000000000000, Pagination{Page: 200000000000000000, Pages: 1, Total: 3, Offset: 3, Limit: 50, HasPrev: true}},
		{"empty with huge page", 0, 200000000000000000, Pagination{Page: 200000000000000000, Pages: 0, Total: 0, Offset: 0, Limit: 50, HasPrev: true}},
		{"zero page is first page", 60, 0, Pagination{Page: 1, Pages: 2, Total: 60, Offset: 0, Limit: 50, HasNext: true}},
		{"negative page is first page", 60, -4, Pagination{Page: 1, Pages: 2, Total: 60, Offset: 0, Limit: 50, HasNext: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Paginate(tc.total, tc.page, PageSize))
		})
	}
}

func TestSubmitReview(t *testing.T) {
	f := setupService(t, RetentionKeep)

	t.Run("first submission is active", func(t *testing.T) {
		review, err := f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(5))
		require.NoError(t, err)
		assert.Equal(t, UserID("Alice"), review.UserID)
		assert.True(t, review.Active)
		assert.Equal(t, 1, f.activeCount(t))
	})

	t.Run("second submission is rejected", func(t *testing.T) {
		_, err := f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(1))
		require.ErrorIs(t, err, ErrDuplicateActiveReview)
		assert.Equal(t, 1, f.activeCount(t))
	})

	t.Run("same name with padding is the same user", func(t *testing.T) {
		form := aliceForm(1)
		form.Name = "  Alice  "
		_, err := f.svc.SubmitReview(f.ctx, f.courseID, form)
		require.ErrorIs(t, err, ErrDuplicateActiveReview)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := f.svc.SubmitReview(f.ctx, 9999, aliceForm(5))
		require.ErrorIs(t, err, ErrCourseNotFound)
	})
}

func TestSubmitReviewValidation(t *testing.T) {
	f := setupService(t, RetentionKeep)

	testCases := []struct {
		name   string
		mutate func(*models.ReviewForm)
		field  string
	}{
		{"blank name", func(fm *models.ReviewForm) { fm.Name = "   " }, "name"},
		{"recommend too high", func(fm *models.ReviewForm) { fm.Recommend = 6 }, "recommend"},
		{"difficulty missing", func(fm *models.ReviewForm) { fm.Difficulty = 0 }, "difficulty"},
		{"fun negative", func(fm *models.ReviewForm) { fm.Fun = -1 }, "fun"},
		{"learning too high", func(fm *models.ReviewForm) { fm.Learning = 10 }, "learning"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			form := aliceForm(3)
			tc.mutate(&form)

			_, err := f.svc.SubmitReview(f.ctx, f.courseID, form)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tc.field, verr.Fields[0].Field)
		})
	}

	assert.Equal(t, 0, f.activeCount(t))
}

func TestCancelAndResubmit(t *testing.T) {
	f := setupService(t, RetentionKeep)

	_, err := f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(5))
	require.NoError(t, err)
	_, err = f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(4))
	require.ErrorIs(t, err, ErrDuplicateActiveReview)

	for i := 0; i < 3; i++ {
		cancelled, err := f.svc.CancelReview(f.ctx, f.courseID, "Alice")
		require.NoError(t, err)
		assert.False(t, cancelled.Active)
		assert.Equal(t, 0, f.activeCount(t))

		_, err = f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(2))
		require.NoError(t, err)
		assert.Equal(t, 1, f.activeCount(t))
	}

	page, err := f.svc.ListActiveReviews(f.ctx, f.courseID, nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Reviews, 1)
	assert.Equal(t, 2, page.Reviews[0].Recommend)

	base := f.svc.Store.(*sqlite.SQLiteStore)
	var inactive int
	require.NoError(t, base.DB.Get(&inactive, `SELECT COUNT(*) FROM reviews WHERE active = 0`))
	assert.Equal(t, 3, inactive, "history is kept")
}

func TestCancelWithPurgeRetention(t *testing.T) {
	f := setupService(t, RetentionPurge)

	for i := 0; i < 3; i++ {
		_, err := f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(i+1))
		require.NoError(t, err)
		_, err = f.svc.CancelReview(f.ctx, f.courseID, "Alice")
		require.NoError(t, err)
	}

	base := f.svc.Store.(*sqlite.SQLiteStore)
	var rows []int
	require.NoError(t, base.DB.Select(&rows, `SELECT recommend FROM reviews`))
	assert.Equal(t, []int{3}, rows, "only the latest retracted review survives")
}

func TestCancelReviewErrors(t *testing.T) {
	f := setupService(t, RetentionKeep)

	t.Run("nothing to cancel", func(t *testing.T) {
		_, err := f.svc.CancelReview(f.ctx, f.courseID, "Bob")
		require.ErrorIs(t, err, ErrNoActiveReview)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := f.svc.CancelReview(f.ctx, f.courseID, " ")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := f.svc.CancelReview(f.ctx, 9999, "Bob")
		require.ErrorIs(t, err, ErrCourseNotFound)
	})
}

func TestCancelReviewByID(t *testing.T) {
	f := setupService(t, RetentionKeep)

	review, err := f.svc.SubmitReview(f.ctx, f.courseID, aliceForm(5))
	require.NoError(t, err)

	t.Run("unknown review", func(t *testing.T) {
		_, err := f.svc.CancelReviewByID(f.ctx, 9999, "Alice")
		require.ErrorIs(t, err, ErrReviewNotFound)
	})

	t.Run("blank name", func(t *testing.T) {
		got, err := f.svc.CancelReviewByID(f.ctx, review.ID, "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.NotNil(t, got)
		assert.Equal(t, f.courseID, got.CourseID)
	})

	t.Run("someone else's review", func(t *testing.T) {
		got, err := f.svc.CancelReviewByID(f.ctx, review.ID, "Mallory")
		require.ErrorIs(t, err, ErrNoActiveReview)
		require.NotNil(t, got)
		assert.Equal(t, f.courseID, got.CourseID)
		assert.Equal(t, 1, f.activeCount(t))
	})

	t.Run("owner", func(t *testing.T) {
		got, err := f.svc.CancelReviewByID(f.ctx, review.ID, "Alice")
		require.NoError(t, err)
		assert.Equal(t, review.ID, got.ID)
		assert.Equal(t, 0, f.activeCount(t))
	})

	t.Run("twice", func(t *testing.T) {
		_, err := f.svc.CancelReviewByID(f.ctx, review.ID, "Alice")
		require.ErrorIs(t, err, ErrNoActiveReview)
	})
}

func TestAverageRatingsAndListing(t *testing.T) {
	f := setupService(t, RetentionKeep)

	avg, err := f.svc.AverageRatings(f.ctx, f.courseID)
	require.NoError(t, err)
	assert.False(t, avg.HasData())
	assert.Nil(t, avg.Recommend, "no reviews must not average to zero")

	names := []string{"a", "b", "c"}
	for i, n := range names {
		form := aliceForm(i + 3)
		form.Name = n
		_, err := f.svc.SubmitReview(f.ctx, f.courseID, form)
		require.NoError(t, err)
	}

	avg, err = f.svc.AverageRatings(f.ctx, f.courseID)
	require.NoError(t, err)
	require.True(t, avg.HasData())
	assert.InDelta(t, 4.0, *avg.Recommend, 1e-9)

	page, err := f.svc.ListActiveReviews(f.ctx, f.courseID, nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Reviews, 3)
	assert.Equal(t, UserID("c"), page.Reviews[0].UserID, "newest first")
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)

	minRec := 4
	page, err = f.svc.ListActiveReviews(f.ctx, f.courseID, &minRec, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.ListActiveReviews(f.ctx, f.courseID, nil, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Reviews)
	assert.True(t, page.HasPrev)
}

func TestListActiveReviewsHugePage(t *testing.T) {
	f := setupService(t, RetentionKeep)

	for _, n := range []string{"a", "b", "c"} {
		form := aliceForm(4)
		form.Name = n
		_, err := f.svc.SubmitReview(f.ctx, f.courseID, form)
		require.NoError(t, err)
	}

	page, err := f.svc.ListActiveReviews(f.ctx, f.courseID, nil, 200000000000000000)
	require.NoError(t, err)
	assert.Empty(t, page.Reviews)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
	assert.Equal(t, 3, page.Total)
}

func TestReviewPagination(t *testing.T) {
	f := setupService(t, RetentionKeep)

	const total = 120
	for i := 0; i < total; i++ {
		form := aliceForm(3)
		form.Name = fmt.Sprintf("student-%03d", i)
		_, err := f.svc.SubmitReview(f.ctx, f.courseID, form)
		require.NoError(t, err)
	}

	seen := make(map[int64]bool)
	for p := 1; p <= 3; p++ {
		page, err := f.svc.ListActiveReviews(f.ctx, f.courseID, nil, p)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Pages)
		assert.Equal(t, p > 1, page.HasPrev)
		assert.Equal(t, p < 3, page.HasNext)

		want := PageSize
		if p == 3 {
			want = total - 2*PageSize
		}
		require.Len(t, page.Reviews, want)
		for _, r := range page.Reviews {
			assert.False(t, seen[r.ID], "review %d on two pages", r.ID)
			seen[r.ID] = true
		}
	}
	assert.Len(t, seen, total)
}
