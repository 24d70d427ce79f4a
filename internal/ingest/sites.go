package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"solar_yield/internal/model"
)

// Required batch input columns.
const (
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColCapacity  = "capacity"
	ColCOD       = "COD"
	ColAverage   = "average"
)

// SiteColumns lists the required input columns in canonical order.
var SiteColumns = []string{ColLatitude, ColLongitude, ColCapacity, ColCOD, ColAverage}

var ErrMissingColumn = errors.New("required column missing")

// SiteRow is one parsed batch input row. Err is set when the row's own
// fields could not be parsed; such rows are reported, not dropped.
type SiteRow struct {
	Line   int
	Record []string
	Query  model.SiteQuery
	Err    error
}

// SiteParser parses batch site CSV files. Columns may appear in any order;
// extra columns are carried through untouched.
//
// Expected format:
//
//	latitude,longitude,capacity,COD,average
//	23.546894,81.236985,10,2025-06-20,1520
type SiteParser struct{}

// Parse returns the header and one SiteRow per data line.
func (p *SiteParser) Parse(r io.Reader) ([]string, []SiteRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	// Stray quotes stay in the field, so a bad cell fails its own row
	// instead of the whole file.
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols, err := siteColumnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var rows []SiteRow

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading CSV: %w", err)
		}
		lineNum, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}

		row := SiteRow{Line: lineNum, Record: record}
		row.Query, row.Err = parseSiteRecord(record, cols, lineNum)
		rows = append(rows, row)
	}

	return header, rows, nil
}

func siteColumnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(SiteColumns))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range SiteColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func parseSiteRecord(record []string, cols map[string]int, lineNum int) (model.SiteQuery, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(record) {
			return "", fmt.Errorf("line %d: missing %s field", lineNum, name)
		}
		return strings.TrimSpace(record[i]), nil
	}
	number := func(name string) (float64, error) {
		s, err := field(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: parsing %s: %w", lineNum, name, err)
		}
		return v, nil
	}

	var q model.SiteQuery
	var err error
	if q.Latitude, err = number(ColLatitude); err != nil {
		return q, err
	}
	if q.Longitude, err = number(ColLongitude); err != nil {
		return q, err
	}
	if q.Capacity, err = number(ColCapacity); err != nil {
		return q, err
	}
	if q.COD, err = field(ColCOD); err != nil {
		return q, err
	}
	if q.StaticAverage, err = number(ColAverage); err != nil {
		return q, err
	}
	return q, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
