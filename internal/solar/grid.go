package solar

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Months is the length of the implicit month axis (1..12).
const Months = 12

var (
	ErrEmptyAxis        = errors.New("axis is empty")
	ErrAxisNotAscending = errors.New("axis is not strictly ascending")
	ErrShapeMismatch    = errors.New("grid values do not match axis lengths")
)

// Grid is an immutable specific-energy dataset indexed by
// (longitude, latitude, month). Values are kWh/kWp/day.
type Grid struct {
	lons   []float64
	lats   []float64
	values []float64 // C order: (i*len(lats)+j)*Months + (month-1)

	nanCells int
}

// Bounds is the closed coordinate range covered by a grid.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// NewGrid validates the axes and takes a copy of the flattened values.
// NaN cells are stored as zero; NaNCells reports how many were replaced.
func NewGrid(lons, lats, values []float64) (*Grid, error) {
	if err := validateAxis("longitude", lons); err != nil {
		return nil, err
	}
	if err := validateAxis("latitude", lats); err != nil {
		return nil, err
	}

	want := len(lons) * len(lats) * Months
	if len(values) != want {
		return nil, fmt.Errorf("%w: got %d values, want %d (%d lons x %d lats x %d months)",
			ErrShapeMismatch, len(values), want, len(lons), len(lats), Months)
	}

	g := &Grid{
		lons:   slices.Clone(lons),
		lats:   slices.Clone(lats),
		values: slices.Clone(values),
	}
	for i, v := range g.values {
		if math.IsNaN(v) {
			g.values[i] = 0
			g.nanCells++
		}
	}
	return g, nil
}

func validateAxis(name string, axis []float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptyAxis)
	}
	for i, v := range axis {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s[%d] = %v: %w", name, i, v, ErrAxisNotAscending)
		}
		if i > 0 && v <= axis[i-1] {
			return fmt.Errorf("%s[%d] = %v after %v: %w", name, i, v, axis[i-1], ErrAxisNotAscending)
		}
	}
	return nil
}

// Lons returns a copy of the longitude axis.
func (g *Grid) Lons() []float64 { return slices.Clone(g.lons) }

// Lats returns a copy of the latitude axis.
func (g *Grid) Lats() []float64 { return slices.Clone(g.lats) }

// Shape returns the lengths of the three axes.
func (g *Grid) Shape() (nLon, nLat, nMonth int) {
	return len(g.lons), len(g.lats), Months
}

// NaNCells is the number of NaN cells replaced with zero at construction.
func (g *Grid) NaNCells() int { return g.nanCells }

func (g *Grid) Bounds() Bounds {
	return Bounds{
		MinLon: g.lons[0],
		MaxLon: g.lons[len(g.lons)-1],
		MinLat: g.lats[0],
		MaxLat: g.lats[len(g.lats)-1],
	}
}

// At returns the stored value at node (i, j) for month 1..12.
func (g *Grid) At(i, j, month int) float64 {
	return g.values[g.index(i, j, month-1)]
}

func (g *Grid) index(i, j, k int) int {
	return (i*len(g.lats)+j)*Months + k
}
