package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// RowSource yields a spreadsheet as rows of cells, header row first.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
	Name() string
}

// SourceFor picks a file source by extension. sheet only applies to
// workbooks; empty means the first sheet.
func SourceFor(path, sheet string) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &XLSXSource{Path: path, Sheet: sheet}, nil
	case ".csv":
		return &CSVSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported spreadsheet format %q, use .xlsx or .csv", filepath.Ext(path))
	}
}

type XLSXSource struct {
	Path  string
	Sheet string
}

func (s *XLSXSource) Name() string {
	return s.Path
}

func (s *XLSXSource) Rows(ctx context.Context) ([][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", s.Path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

type CSVSource struct {
	Path string
}

func (s *CSVSource) Name() string {
	return s.Path
}

func (s *CSVSource) Rows(ctx context.Context) ([][]string, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	// Excel saves UTF-8 CSV with a byte order mark
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

// GSheetSource reads a values range from a Google Sheet with service
// account credentials.
type GSheetSource struct {
	sheetID string
	readRng string
	service *sheets.Service
}

func NewGSheetSource(ctx context.Context, sheetID, readRange, credentialsPath string) (*GSheetSource, error) {
	if sheetID == "" {
		return nil, fmt.Errorf("google sheet id is not configured")
	}

	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GSheetSource{sheetID: sheetID, readRng: readRange, service: svc}, nil
}

func (s *GSheetSource) Name() string {
	return fmt.Sprintf("gsheet:%s!%s", s.sheetID, s.readRng)
}

func (s *GSheetSource) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, s.readRng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet values: %w", err)
	}
	return valuesToRows(resp.Values), nil
}

func valuesToRows(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
