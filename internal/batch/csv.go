package batch

import (
	"fmt"
	"io"

	"solar_yield/internal/ingest"
)

// WriteCSV writes outcomes as the input rows plus the two blended yield
// columns. Rows that failed keep their input and get empty yield cells.
func WriteCSV(w io.Writer, header []string, outcomes []Outcome) error {
	sw := ingest.NewSiteWriter(w)
	if err := sw.WriteHeader(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, o := range outcomes {
		var err error
		if o.Err != nil {
			err = sw.WriteFailure(o.Row.Record)
		} else {
			err = sw.WriteResult(o.Row.Record, o.Blended)
		}
		if err != nil {
			return fmt.Errorf("writing line %d: %w", o.Row.Line, err)
		}
	}
	return sw.Flush()
}
