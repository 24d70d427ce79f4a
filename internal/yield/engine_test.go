package yield

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar_yield/internal/model"
	"solar_yield/internal/solar"
)

// monthValue is the fixture's specific energy: location independent,
// rising by 0.1 kWh/kWp/day per month.
func monthValue(month int) float64 {
	return 3 + 0.1*float64(month)
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	lons := []float64{70, 80, 90}
	lats := []float64{20, 30}
	values := make([]float64, 0, len(lons)*len(lats)*solar.Months)
	for range lons {
		for range lats {
			for m := 1; m <= solar.Months; m++ {
				values = append(values, monthValue(m))
			}
		}
	}
	g, err := solar.NewGrid(lons, lats, values)
	require.NoError(t, err)
	return New(solar.NewInterpolator(g))
}

func site(cod string) model.SiteQuery {
	return model.SiteQuery{
		Latitude:      25,
		Longitude:     75,
		Capacity:      10,
		COD:           cod,
		StaticAverage: 1500,
	}
}

func TestEstimate_FullYear(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2025-06-20"))
	require.NoError(t, err)
	assert.True(t, r.Covered)

	var sum float64
	for m := 1; m <= 12; m++ {
		expected := 10 * monthValue(m) * float64(model.Days(m))
		assert.InDelta(t, expected, r.Monthly[m-1], 1e-9, "month %d", m)
		sum += r.Monthly[m-1]
	}
	assert.InDelta(t, 961.0, r.Monthly[0], 1e-9)
	assert.Equal(t, Round2(sum), r.GISYear)
	assert.Equal(t, 15000.0, r.RegressionYear)
}

func TestEstimate_MidYearCOD(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2025-06-20"))
	require.NoError(t, err)

	assert.Equal(t, 195, r.DaysToEOY) // 11 days of June + Jul..Dec

	partial := monthValue(6) * 11 * 10
	var full float64
	for m := 7; m <= 12; m++ {
		full += 10 * monthValue(m) * float64(model.Days(m))
	}
	assert.InDelta(t, Round2(partial+Round2(full)), r.GISToEOY, 1e-9)
	assert.InDelta(t, Round2(15000*195.0/365), r.RegressionToEOY, 1e-9)
}

func TestEstimate_DayFirstCOD(t *testing.T) {
	e := testEngine(t)

	want, err := e.Estimate(site("2025-06-20"))
	require.NoError(t, err)

	for _, cod := range []string{"20/06/2025", "20.06.2025", "20-06-2025"} {
		got, err := e.Estimate(site(cod))
		require.NoError(t, err, cod)
		assert.Equal(t, want.DaysToEOY, got.DaysToEOY, cod)
		assert.Equal(t, want.GISToEOY, got.GISToEOY, cod)
		assert.Equal(t, want.RegressionToEOY, got.RegressionToEOY, cod)
	}
}

func TestEstimate_FirstDayOfYear(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2025-01-01"))
	require.NoError(t, err)

	assert.Equal(t, 365, r.DaysToEOY)
	// GISToEOY rounds the Feb..Dec part before adding January, so it can
	// differ from GISYear by one cent.
	assert.InDelta(t, r.GISYear, r.GISToEOY, 0.011)
	assert.Equal(t, r.RegressionYear, r.RegressionToEOY)
}

func TestEstimate_LastDayOfYear(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2025-12-31"))
	require.NoError(t, err)

	assert.Equal(t, 1, r.DaysToEOY)
	assert.InDelta(t, Round2(10*monthValue(12)), r.GISToEOY, 1e-9)
	assert.InDelta(t, Round2(10*1500.0/365), r.RegressionToEOY, 1e-9)
	assert.InDelta(t, 41.10, r.RegressionToEOY, 1e-9)
}

func TestEstimate_DecemberCOD(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2025-12-10"))
	require.NoError(t, err)

	assert.Equal(t, 22, r.DaysToEOY)
	assert.InDelta(t, Round2(10*monthValue(12)*22), r.GISToEOY, 1e-9)
}

func TestEstimate_LeapDay(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2024-02-29"))
	require.NoError(t, err)

	// 1 day of February + Mar..Dec
	assert.Equal(t, 1+365-31-28, r.DaysToEOY)
}

func TestEstimate_CapacityIsLinear(t *testing.T) {
	e := testEngine(t)

	q := site("2025-03-15")
	single, err := e.Estimate(q)
	require.NoError(t, err)

	q.Capacity *= 2
	double, err := e.Estimate(q)
	require.NoError(t, err)

	for m := 0; m < 12; m++ {
		assert.Equal(t, 2*single.Monthly[m], double.Monthly[m])
	}
	assert.InDelta(t, 2*single.GISYear, double.GISYear, 0.011)
	assert.InDelta(t, 2*single.GISToEOY, double.GISToEOY, 0.021)
	assert.InDelta(t, 2*single.RegressionYear, double.RegressionYear, 0.011)
	assert.InDelta(t, 2*single.RegressionToEOY, double.RegressionToEOY, 0.011)
}

func TestEstimate_ZeroCapacity(t *testing.T) {
	e := testEngine(t)

	q := site("2025-06-20")
	q.Capacity = 0
	r, err := e.Estimate(q)
	require.NoError(t, err)

	assert.Equal(t, [12]float64{}, r.Monthly)
	assert.Equal(t, 0.0, r.GISYear)
	assert.Equal(t, 0.0, r.RegressionToEOY)
}

func TestEstimate_OutsideCoverage(t *testing.T) {
	e := testEngine(t)

	q := site("2025-06-20")
	q.Latitude = -45
	r, err := e.Estimate(q)
	require.NoError(t, err)

	assert.False(t, r.Covered)
	assert.Equal(t, [12]float64{}, r.Monthly)
	assert.Equal(t, 0.0, r.GISYear)
	assert.Equal(t, 0.0, r.GISToEOY)

	// regression figures do not depend on the grid
	assert.Equal(t, 15000.0, r.RegressionYear)
	assert.InDelta(t, Round2(15000*195.0/365), r.RegressionToEOY, 1e-9)
}

func TestEstimate_InvalidCOD(t *testing.T) {
	e := testEngine(t)

	for _, cod := range []string{"", "unknown", "2025-13-45"} {
		_, err := e.Estimate(site(cod))
		require.Error(t, err, "cod %q", cod)
		assert.ErrorIs(t, err, ErrInvalidCOD)
	}
}

func TestGetYield_MatchesEstimate(t *testing.T) {
	e := testEngine(t)

	r, err := e.Estimate(site("2025-06-20"))
	require.NoError(t, err)

	monthly, c1, c2, c3, c4, err := e.GetYield(25, 75, 10, "2025-06-20", 1500)
	require.NoError(t, err)
	assert.Equal(t, r.Monthly, monthly)
	assert.Equal(t, r.GISYear, c1)
	assert.Equal(t, r.GISToEOY, c2)
	assert.Equal(t, r.RegressionYear, c3)
	assert.Equal(t, r.RegressionToEOY, c4)

	_, _, _, _, _, err = e.GetYield(25, 75, 10, "garbage", 1500)
	assert.ErrorIs(t, err, ErrInvalidCOD)
}

func TestEstimate_Concurrent(t *testing.T) {
	e := testEngine(t)
	expected, err := e.Estimate(site("2025-06-20"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]model.YieldResult, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Estimate(site("2025-06-20"))
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, expected, r)
	}
}

func TestEstimate_NaNCapacity(t *testing.T) {
	e := testEngine(t)

	q := site("2025-06-20")
	q.Capacity = math.NaN()
	r, err := e.Estimate(q)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r.GISYear))
}
