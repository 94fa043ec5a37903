package app

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/syllabus/internal/models"
)

func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.Store.ListCourses(ctx)
}

// SearchCourses with an empty filter is ListCourses.
func (s *Service) SearchCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if filter.IsEmpty() && filter.OrderByCode {
		return s.Store.ListCourses(ctx)
	}
	return s.Store.SearchCourses(ctx, filter)
}

func (s *Service) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.Store.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %d: %w", id, ErrCourseNotFound)
	}
	return course, nil
}
