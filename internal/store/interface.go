package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/models"
)

// ErrUniqueViolation is returned when an insert collides with a unique index.
var ErrUniqueViolation = errors.New("unique constraint violation")

type ReviewStore interface {
	Close() error
	ApplyMigrations(fsys fs.FS) error

	InsertCourse(ctx context.Context, course *models.Course) (bool, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	SearchCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)

	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	CountActiveReviews(ctx context.Context, courseID int64, minRecommend *int) (int, error)
	ListActiveReviews(ctx context.Context, courseID int64, minRecommend *int, limit, offset int) ([]models.Review, error)
	AverageRatings(ctx context.Context, courseID int64) (*models.RatingAverages, error)
	DeactivateReview(ctx context.Context, courseID int64, userID string, purgeInactive bool) (*models.Review, error)
	DeactivateReviewByID(ctx context.Context, reviewID int64, userID string, purgeInactive bool) (*models.Review, error)
}

const (
	courseColumns = `id, code, title, area, year, schedule`
	reviewColumns = `id, course_id, user_id, recommend, difficulty, fun, learning,
		comment, attendance_required, assessment, created_at, active`
)

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB *sqlx.DB
	// Converter rewrites ? placeholders into the dialect's bind style.
	Converter func(string) string
	// Contains returns a case-sensitive containment predicate on column
	// with a single ? placeholder for the needle.
	Contains          func(column string) string
	IsUniqueViolation func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from fsys in name order, translating dialect if needed
func (s *BaseStore) ApplyMigrations(fsys fs.FS, translateSQL func(string) string) error {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		logger.Debug.Printf("Applying migration: %s", file.Name())
		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

// InsertCourse adds a course unless its code is already present. The bool
// reports whether a row was written.
func (s *BaseStore) InsertCourse(ctx context.Context, course *models.Course) (bool, error) {
	res, err := s.DB.ExecContext(ctx, s.Converter(`
		INSERT INTO courses (code, title, area, year, schedule)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING
	`), course.Code, course.Title, course.Area, course.Year, course.Schedule)
	if err != nil {
		return false, fmt.Errorf("failed to insert course %s: %w", course.Code, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	query := s.Converter(`SELECT ` + courseColumns + ` FROM courses WHERE id = ?`)

	err := s.DB.GetContext(ctx, &course, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (s *BaseStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := s.DB.SelectContext(ctx, &courses, `
		SELECT `+courseColumns+`
		FROM courses
		ORDER BY code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *BaseStore) SearchCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	contains := func(column, needle string) {
		if needle != "" {
			conds = append(conds, s.Contains(column))
			args = append(args, needle)
		}
	}
	equals := func(column, value string) {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}

	contains("code", filter.Code)
	contains("title", filter.Title)
	equals("area", filter.Area)
	equals("year", filter.Year)
	contains("schedule", filter.Schedule)

	query := `SELECT ` + courseColumns + ` FROM courses`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	if filter.OrderByCode {
		query += ` ORDER BY code ASC`
	}

	var courses []models.Course
	if err := s.DB.SelectContext(ctx, &courses, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}
	return courses, nil
}

// CreateReview inserts review and sets its ID. A second active review for the
// same course and user yields ErrUniqueViolation and writes nothing.
func (s *BaseStore) CreateReview(ctx context.Context, review *models.Review) error {
	query := s.Converter(`
		INSERT INTO reviews (
			course_id, user_id, recommend, difficulty, fun, learning,
			comment, attendance_required, assessment, created_at, active
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.DB.QueryRowxContext(ctx, query,
		review.CourseID,
		review.UserID,
		review.Recommend,
		review.Difficulty,
		review.Fun,
		review.Learning,
		review.Comment,
		flag(review.AttendanceRequired),
		review.Assessment,
		review.CreatedAt,
		flag(review.Active),
	).Scan(&review.ID)
	if err != nil {
		if s.IsUniqueViolation != nil && s.IsUniqueViolation(err) {
			return fmt.Errorf("failed to create review: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (s *BaseStore) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	var review models.Review
	query := s.Converter(`SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`)

	err := s.DB.GetContext(ctx, &review, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

func activeReviewsWhere(courseID int64, minRecommend *int) (string, []interface{}) {
	where := ` WHERE course_id = ? AND active = 1`
	args := []interface{}{courseID}
	if minRecommend != nil {
		where += ` AND recommend >= ?`
		args = append(args, *minRecommend)
	}
	return where, args
}

func (s *BaseStore) CountActiveReviews(ctx context.Context, courseID int64, minRecommend *int) (int, error) {
	where, args := activeReviewsWhere(courseID, minRecommend)

	var total int
	if err := s.DB.GetContext(ctx, &total, s.Converter(`SELECT COUNT(*) FROM reviews`+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return total, nil
}

// ListActiveReviews returns active reviews newest first.
func (s *BaseStore) ListActiveReviews(ctx context.Context, courseID int64, minRecommend *int, limit, offset int) ([]models.Review, error) {
	where, args := activeReviewsWhere(courseID, minRecommend)
	query := `SELECT ` + reviewColumns + ` FROM reviews` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	reviews := []models.Review{}
	if err := s.DB.SelectContext(ctx, &reviews, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *BaseStore) AverageRatings(ctx context.Context, courseID int64) (*models.RatingAverages, error) {
	var avg models.RatingAverages
	query := s.Converter(`
		SELECT
			COUNT(*) AS count,
			ROUND(AVG(recommend), 2) AS recommend,
			ROUND(AVG(difficulty), 2) AS difficulty,
			ROUND(AVG(fun), 2) AS fun,
			ROUND(AVG(learning), 2) AS learning
		FROM reviews
		WHERE course_id = ? AND active = 1
	`)

	if err := s.DB.GetContext(ctx, &avg, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to compute averages: %w", err)
	}
	return &avg, nil
}

// DeactivateReview retracts the newest active review of userID on courseID.
// It returns nil when there is nothing to retract.
func (s *BaseStore) DeactivateReview(ctx context.Context, courseID int64, userID string, purgeInactive bool) (*models.Review, error) {
	return s.deactivate(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE course_id = ? AND user_id = ? AND active = 1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, []interface{}{courseID, userID}, purgeInactive)
}

// DeactivateReviewByID retracts reviewID if it is active and owned by userID.
func (s *BaseStore) DeactivateReviewByID(ctx context.Context, reviewID int64, userID string, purgeInactive bool) (*models.Review, error) {
	return s.deactivate(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE id = ? AND user_id = ? AND active = 1
	`, []interface{}{reviewID, userID}, purgeInactive)
}

func (s *BaseStore) deactivate(ctx context.Context, selectQuery string, args []interface{}, purgeInactive bool) (*models.Review, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var review models.Review
	err = tx.GetContext(ctx, &review, s.Converter(selectQuery), args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active review: %w", err)
	}

	if purgeInactive {
		// the row being retracted is still active here, so it can't match
		_, err := tx.ExecContext(ctx, s.Converter(`
			DELETE FROM reviews
			WHERE course_id = ? AND user_id = ? AND active = 0
		`), review.CourseID, review.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to purge inactive reviews: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.Converter(`UPDATE reviews SET active = 0 WHERE id = ?`), review.ID); err != nil {
		return nil, fmt.Errorf("failed to deactivate review %d: %w", review.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deactivation: %w", err)
	}

	review.Active = false
	return &review, nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
