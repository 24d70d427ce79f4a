package yield

import (
	"math"

	"github.com/shopspring/decimal"

	"solar_yield/internal/model"
)

// DefaultBlendFactor derates the average of the two models for display.
const DefaultBlendFactor = 0.9

// Round2 rounds v to 2 decimal places, half away from zero. Non-finite
// values are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Blend derives the displayed "actual" yields: factor times the mean of the
// GIS and regression figures.
func Blend(r model.YieldResult, factor float64) model.Blended {
	return model.Blended{
		Year:  factor * 0.5 * (r.GISYear + r.RegressionYear),
		ToEOY: factor * 0.5 * (r.GISToEOY + r.RegressionToEOY),
	}
}
