// Package yield turns a site query into first-year and COD-to-end-of-year
// energy estimates under the GIS (grid interpolation) and regression models.
package yield

import (
	"gonum.org/v1/gonum/floats"

	"solar_yield/internal/model"
	"solar_yield/internal/solar"
)

var allMonths = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

var daysVec = func() []float64 {
	v := make([]float64, len(model.DaysInMonth))
	for i, d := range model.DaysInMonth {
		v[i] = float64(d)
	}
	return v
}()

// Engine computes yield estimates against a shared, read-only interpolator.
// It is safe for concurrent use.
type Engine struct {
	interp *solar.Interpolator
}

func New(interp *solar.Interpolator) *Engine {
	return &Engine{interp: interp}
}

// Interpolator returns the grid lookup backing the GIS model.
func (e *Engine) Interpolator() *solar.Interpolator { return e.interp }

// Estimate computes all four yield figures for q. The only failure is an
// unparseable COD; coordinates outside the grid zero the GIS figures and
// clear Covered.
func (e *Engine) Estimate(q model.SiteQuery) (model.YieldResult, error) {
	cod, err := ParseCOD(q.COD)
	if err != nil {
		return model.YieldResult{}, err
	}

	r := model.YieldResult{
		COD:     cod,
		Covered: e.interp.Covers(q.Longitude, q.Latitude),
	}

	// GIS, full year: specific energy x days x capacity per month.
	specific := e.interp.Lookup(q.Longitude, q.Latitude, allMonths...)
	monthly := r.Monthly[:]
	floats.MulTo(monthly, specific, daysVec)
	floats.Scale(q.Capacity, monthly)
	r.GISYear = Round2(floats.Sum(monthly))

	// GIS, COD to EOY: partial first month plus the remaining full months.
	month := int(cod.Month())
	partialDays := PartialMonthDays(cod)
	partialEnergy := specific[month-1] * float64(partialDays) * q.Capacity

	var fullEnergy float64
	fullDays := 0
	if month < 12 {
		rest := monthly[month:]
		fullEnergy = Round2(floats.Sum(rest))
		for _, d := range model.DaysInMonth[month:] {
			fullDays += d
		}
	}
	r.GISToEOY = Round2(partialEnergy + fullEnergy)
	r.DaysToEOY = partialDays + fullDays

	// Regression: flat scaling of the static average.
	r.RegressionYear = Round2(q.Capacity * q.StaticAverage)
	r.RegressionToEOY = Round2(q.Capacity * q.StaticAverage * (float64(r.DaysToEOY) / model.DaysInYear))

	return r, nil
}

// GetYield is Estimate in positional form: the monthly GIS vector followed
// by the four totals (GIS year, GIS COD-to-EOY, regression year, regression
// COD-to-EOY).
func (e *Engine) GetYield(latitude, longitude, capacity float64, cod string, staticAverage float64) (
	monthly [12]float64, case1, case2, case3, case4 float64, err error) {
	r, err := e.Estimate(model.SiteQuery{
		Latitude:      latitude,
		Longitude:     longitude,
		Capacity:      capacity,
		COD:           cod,
		StaticAverage: staticAverage,
	})
	if err != nil {
		return monthly, 0, 0, 0, 0, err
	}
	return r.Monthly, r.GISYear, r.GISToEOY, r.RegressionYear, r.RegressionToEOY, nil
}
