package model

import "time"

// DaysInMonth holds the day count of each calendar month for a non-leap year.
// Leap years are not modelled: 29 February folds into the 28-day table.
var DaysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInYear is the sum of DaysInMonth.
const DaysInYear = 365

// MonthNames labels the monthly series for charts and tables.
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Days returns the day count for month (1..12). Out-of-range months return 0.
func Days(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return DaysInMonth[month-1]
}

// SiteQuery is the per-request input of a yield estimate.
type SiteQuery struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Capacity is the installed capacity in kWp.
	Capacity float64 `json:"capacity"`
	// COD is the commercial operation date in any common unambiguous format.
	COD string `json:"cod"`
	// StaticAverage is the externally supplied yield in kWh/kWp/yr.
	StaticAverage float64 `json:"average"`
}

// YieldResult holds the outputs of both models for one site.
type YieldResult struct {
	// Monthly is the unrounded GIS-model energy (kWh) for Jan..Dec.
	Monthly [12]float64 `json:"monthly"`

	GISYear         float64 `json:"gis_year_kwh"`
	GISToEOY        float64 `json:"gis_cod_eoy_kwh"`
	RegressionYear  float64 `json:"regression_year_kwh"`
	RegressionToEOY float64 `json:"regression_cod_eoy_kwh"`

	// COD is the resolved commercial operation date.
	COD time.Time `json:"cod"`
	// DaysToEOY counts the days from COD through 31 December, inclusive.
	DaysToEOY int `json:"days_to_eoy"`
	// Covered is false when the site lies outside the grid, in which case
	// the GIS figures are zero for lack of data rather than lack of sun.
	Covered bool `json:"covered"`
}

// Blended is the "actual" figure shown to users: a weighted average of the
// GIS and regression models.
type Blended struct {
	Year  float64 `json:"year_kwh"`
	ToEOY float64 `json:"cod_eoy_kwh"`
}
