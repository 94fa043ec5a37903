package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/metrics"
	"github.com/shrimpsizemoose/syllabus/internal/models"
)

const progressEvery = 1000

// Columns are the header names holding each course field. Only Code must
// be present in the sheet.
type Columns struct {
	Code     string
	Title    string
	Area     string
	Year     string
	Schedule string
}

type CourseInserter interface {
	InsertCourse(ctx context.Context, course *models.Course) (bool, error)
}

type Result struct {
	Inserted int
	Skipped  int
	Invalid  int
}

func (r Result) String() string {
	return fmt.Sprintf("inserted=%d skipped=%d invalid=%d", r.Inserted, r.Skipped, r.Invalid)
}

type Importer struct {
	store   CourseInserter
	columns Columns
}

func New(store CourseInserter, columns Columns) *Importer {
	return &Importer{store: store, columns: columns}
}

type columnIndex struct {
	code, title, area, year, schedule int
}

func (im *Importer) index(header []string) (columnIndex, error) {
	headerIndex := make(map[string]int, len(header))
	for i, h := range header {
		headerIndex[strings.TrimSpace(h)] = i
	}

	find := func(name string) int {
		if i, ok := headerIndex[name]; ok && name != "" {
			return i
		}
		return -1
	}

	idx := columnIndex{
		code:     find(im.columns.Code),
		title:    find(im.columns.Title),
		area:     find(im.columns.Area),
		year:     find(im.columns.Year),
		schedule: find(im.columns.Schedule),
	}
	if idx.code < 0 {
		return idx, fmt.Errorf("header has no course code column %q", im.columns.Code)
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Import inserts every data row of src as a course. Rows whose code already
// exists are skipped, so importing the same sheet again changes nothing.
func (im *Importer) Import(ctx context.Context, src RowSource) (*Result, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", src.Name())
	}

	idx, err := im.index(rows[0])
	if err != nil {
		return nil, err
	}

	logger.Info.Printf("Importing %d rows from %s", len(rows)-1, src.Name())

	result := &Result{}
	for i, row := range rows[1:] {
		if i > 0 && i%progressEvery == 0 {
			logger.Info.Printf("Processing row %d... (%s)", i+1, result)
		}

		course := models.Course{
			Code:     cell(row, idx.code),
			Title:    cell(row, idx.title),
			Area:     cell(row, idx.area),
			Year:     cell(row, idx.year),
			Schedule: cell(row, idx.schedule),
		}
		if err := course.Validate(); err != nil {
			// spreadsheet row numbers are 1-based and include the header
			logger.Debug.Printf("Row %d has no course code, skipping", i+2)
			metrics.CourseImportRowsTotal.WithLabelValues("invalid").Inc()
			result.Invalid++
			continue
		}

		inserted, err := im.store.InsertCourse(ctx, &course)
		if err != nil {
			return result, fmt.Errorf("row %d (%s): %w", i+2, course.Code, err)
		}
		if inserted {
			metrics.CourseImportRowsTotal.WithLabelValues("inserted").Inc()
			result.Inserted++
		} else {
			metrics.CourseImportRowsTotal.WithLabelValues("skipped").Inc()
			result.Skipped++
		}
	}

	logger.Info.Printf("Import of %s finished: %s", src.Name(), result)
	return result, nil
}
