package ingest

import (
	"encoding/csv"
	"io"
	"strconv"

	"solar_yield/internal/model"
)

// Output columns appended to every batch row.
const (
	ColYearYield  = "yield_1yr_kwh"
	ColToEOYYield = "yield_cod_eoy_kwh"
)

// SiteWriter writes batch results: the input row followed by the blended
// one-year and COD-to-EOY yields. Failed rows get empty output cells.
type SiteWriter struct {
	cw *csv.Writer
}

func NewSiteWriter(w io.Writer) *SiteWriter {
	return &SiteWriter{cw: csv.NewWriter(w)}
}

func (sw *SiteWriter) WriteHeader(header []string) error {
	return sw.cw.Write(appendCells(header, ColYearYield, ColToEOYYield))
}

func (sw *SiteWriter) WriteResult(record []string, b model.Blended) error {
	return sw.cw.Write(appendCells(record, formatKWh(b.Year), formatKWh(b.ToEOY)))
}

func (sw *SiteWriter) WriteFailure(record []string) error {
	return sw.cw.Write(appendCells(record, "", ""))
}

// Flush writes buffered rows and reports any write error.
func (sw *SiteWriter) Flush() error {
	sw.cw.Flush()
	return sw.cw.Error()
}

func appendCells(record []string, cells ...string) []string {
	out := make([]string, 0, len(record)+len(cells))
	out = append(out, record...)
	return append(out, cells...)
}

func formatKWh(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
