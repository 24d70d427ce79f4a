package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar_yield/internal/ingest"
	"solar_yield/internal/model"
	"solar_yield/internal/solar"
	"solar_yield/internal/yield"
)

func testEngine(t *testing.T) *yield.Engine {
	t.Helper()
	g, err := ingest.LoadGrid("../../testdata/grid_small.json")
	require.NoError(t, err)
	return yield.New(solar.NewInterpolator(g))
}

type recordingCallback struct {
	mu        sync.Mutex
	progress  []Progress
	completed []Progress
}

func (c *recordingCallback) OnProgress(_ string, p Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, p)
}

func (c *recordingCallback) OnComplete(_ string, p Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, p)
}

func makeRows(n int) []ingest.SiteRow {
	rows := make([]ingest.SiteRow, n)
	for i := range rows {
		rows[i] = ingest.SiteRow{
			Line:   i + 2,
			Record: []string{fmt.Sprint(i)},
			Query: model.SiteQuery{
				Latitude:      20 + float64(i%10),
				Longitude:     70 + float64(i%20),
				Capacity:      float64(1 + i),
				COD:           fmt.Sprintf("2025-%02d-15", 1+i%12),
				StaticAverage: 1400 + float64(i),
			},
		}
	}
	return rows
}

func TestProcessor_EachRowUsesItsOwnInputs(t *testing.T) {
	engine := testEngine(t)
	p := NewProcessor(engine, 4, yield.DefaultBlendFactor, zerolog.Nop())
	rows := makeRows(40)

	outcomes, err := p.Run(context.Background(), "job-1", rows, nil)
	require.NoError(t, err)
	require.Len(t, outcomes, len(rows))

	seen := make(map[float64]bool)
	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, rows[i].Line, o.Row.Line)

		expected, err := engine.Estimate(rows[i].Query)
		require.NoError(t, err)
		assert.Equal(t, expected, o.Result)
		assert.Equal(t, yield.Blend(expected, yield.DefaultBlendFactor), o.Blended)

		seen[o.Result.RegressionYear] = true
	}
	assert.Len(t, seen, len(rows), "every row should produce its own result")
}

func TestProcessor_FailedRowDoesNotAbort(t *testing.T) {
	p := NewProcessor(testEngine(t), 2, yield.DefaultBlendFactor, zerolog.Nop())
	rows := makeRows(5)
	rows[1].Query.COD = "unknown"
	rows[3].Err = errors.New("line 5: parsing capacity")

	cb := &recordingCallback{}
	outcomes, err := p.Run(context.Background(), "job-2", rows, cb)
	require.NoError(t, err)

	assert.ErrorIs(t, outcomes[1].Err, yield.ErrInvalidCOD)
	assert.EqualError(t, outcomes[3].Err, "line 5: parsing capacity")
	for _, i := range []int{0, 2, 4} {
		assert.NoError(t, outcomes[i].Err)
		assert.Greater(t, outcomes[i].Result.GISYear, 0.0)
	}

	require.Len(t, cb.completed, 1)
	assert.Equal(t, Progress{Done: 5, Failed: 2, Total: 5}, cb.completed[0])
	assert.Equal(t, cb.completed[0], Summarize(outcomes))
}

func TestProcessor_ProgressEvents(t *testing.T) {
	p := NewProcessor(testEngine(t), 3, yield.DefaultBlendFactor, zerolog.Nop())

	cb := &recordingCallback{}
	_, err := p.Run(context.Background(), "job-3", makeRows(10), cb)
	require.NoError(t, err)

	require.Len(t, cb.progress, 9)
	for n, pr := range cb.progress {
		assert.Equal(t, n+1, pr.Done)
		assert.Equal(t, 10, pr.Total)
	}
	assert.Equal(t, 10, cb.completed[0].Done)
}

func TestProcessor_Cancelled(t *testing.T) {
	p := NewProcessor(testEngine(t), 1, yield.DefaultBlendFactor, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := makeRows(3)
	outcomes, err := p.Run(ctx, "job-4", rows, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.Equal(t, rows[i].Line, o.Row.Line)
	}
}

func TestReportStep(t *testing.T) {
	assert.Equal(t, 1, reportStep(0))
	assert.Equal(t, 1, reportStep(150))
	assert.Equal(t, 5, reportStep(500))
}

func TestWriteCSV(t *testing.T) {
	input := `latitude,longitude,capacity,COD,average
25,75,10,2025-01-01,1500
25,75,10,unknown,1500
25,75,20,2025-01-01,1500`

	header, rows, err := (&ingest.SiteParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)

	p := NewProcessor(testEngine(t), 2, yield.DefaultBlendFactor, zerolog.Nop())
	outcomes, err := p.Run(context.Background(), "job-5", rows, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, header, outcomes))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "latitude,longitude,capacity,COD,average,yield_1yr_kwh,yield_cod_eoy_kwh", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "25,75,10,2025-01-01,1500,"))
	assert.Equal(t, "25,75,10,unknown,1500,,", lines[2])
	assert.NotEqual(t, strings.TrimPrefix(lines[1], "25,75,10"), strings.TrimPrefix(lines[3], "25,75,20"))
}
