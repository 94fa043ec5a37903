package models

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report form field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

type Review struct {
	ID                 int64  `db:"id" json:"id"`
	CourseID           int64  `db:"course_id" json:"course_id"`
	UserID             string `db:"user_id" json:"user_id"`
	Recommend          int    `db:"recommend" json:"recommend"`
	Difficulty         int    `db:"difficulty" json:"difficulty"`
	Fun                int    `db:"fun" json:"fun"`
	Learning           int    `db:"learning" json:"learning"`
	Comment            string `db:"comment" json:"comment"`
	AttendanceRequired bool   `db:"attendance_required" json:"attendance_required"`
	Assessment         string `db:"assessment" json:"assessment"`
	CreatedAt          int64  `db:"created_at" json:"created_at"`
	Active             bool   `db:"active" json:"active"`
}

func (r *Review) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}

// ReviewForm is what a student submits from the course page.
type ReviewForm struct {
	Name               string `form:"name" validate:"required,max=64"`
	Recommend          int    `form:"recommend" validate:"min=1,max=5"`
	Difficulty         int    `form:"difficulty" validate:"min=1,max=5"`
	Fun                int    `form:"fun" validate:"min=1,max=5"`
	Learning           int    `form:"learning" validate:"min=1,max=5"`
	Comment            string `form:"comment" validate:"max=4000"`
	AttendanceRequired bool   `form:"attendance_required"`
	Assessment         string `form:"assessment" validate:"max=200"`
}

func (f *ReviewForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Comment = strings.TrimSpace(f.Comment)
	f.Assessment = strings.TrimSpace(f.Assessment)
}

func (f *ReviewForm) Validate() error {
	return validate.Struct(f)
}

// RatingAverages are means over active reviews only. The pointers stay nil
// when Count is zero.
type RatingAverages struct {
	Count      int      `db:"count" json:"count"`
	Recommend  *float64 `db:"recommend" json:"recommend"`
	Difficulty *float64 `db:"difficulty" json:"difficulty"`
	Fun        *float64 `db:"fun" json:"fun"`
	Learning   *float64 `db:"learning" json:"learning"`
}

func (a *RatingAverages) HasData() bool {
	return a != nil && a.Count > 0
}
