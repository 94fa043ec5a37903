package models

type Course struct {
	ID       int64  `db:"id" json:"id"`
	Code     string `db:"code" json:"code" validate:"required"`
	Title    string `db:"title" json:"title"`
	Area     string `db:"area" json:"area"`
	Year     string `db:"year" json:"year"`
	Schedule string `db:"schedule" json:"schedule"`
}

func (c *Course) Validate() error {
	return validate.Struct(c)
}

// CourseFilter holds optional search predicates. Code, Title and Schedule
// match by case-sensitive containment; Area and Year must match exactly.
// Empty fields do not constrain the result.
type CourseFilter struct {
	Code        string
	Title       string
	Area        string
	Year        string
	Schedule    string
	OrderByCode bool
}

func (f CourseFilter) IsEmpty() bool {
	return f.Code == "" && f.Title == "" && f.Area == "" && f.Year == "" && f.Schedule == ""
}
