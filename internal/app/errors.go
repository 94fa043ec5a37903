package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrCourseNotFound        = errors.New("course not found")
	ErrReviewNotFound        = errors.New("review not found")
	ErrDuplicateActiveReview = errors.New("you have already reviewed this course, cancel your review first")
	ErrNoActiveReview        = errors.New("no active review to cancel")
	ErrThrottled             = errors.New("too many submissions, try again later")
)

// FieldError is used to indicate an error with a specific form field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Fields []FieldError
}

func (err *ValidationError) Error() string {
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Field+" "+f.Error)
	}
	return strings.Join(msgs, "; ")
}

func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fieldMessage(fe)})
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		if fe.Kind() == reflect.Int {
			return "must be between 1 and 5"
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}
