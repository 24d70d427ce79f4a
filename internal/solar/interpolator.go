package solar

import (
	"math"
	"sort"
)

var monthAxis = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

// Interpolator performs bounded trilinear lookups over a Grid.
// It holds no mutable state and is safe for concurrent use.
type Interpolator struct {
	grid *Grid
}

func NewInterpolator(g *Grid) *Interpolator {
	return &Interpolator{grid: g}
}

// Grid returns the underlying dataset.
func (ip *Interpolator) Grid() *Grid { return ip.grid }

// Covers reports whether (lon, lat) lies inside the grid's closed range.
func (ip *Interpolator) Covers(lon, lat float64) bool {
	_, _, okLon := bracket(ip.grid.lons, lon)
	_, _, okLat := bracket(ip.grid.lats, lat)
	return okLon && okLat
}

// Lookup returns the interpolated specific energy at (lon, lat) for each
// requested month, in the order given. A point outside the range of any
// axis evaluates to exactly 0.
func (ip *Interpolator) Lookup(lon, lat float64, months ...float64) []float64 {
	out := make([]float64, len(months))

	i, fi, okLon := bracket(ip.grid.lons, lon)
	j, fj, okLat := bracket(ip.grid.lats, lat)
	if !okLon || !okLat {
		return out
	}

	for n, m := range months {
		k, fk, ok := bracket(monthAxis, m)
		if !ok {
			continue
		}
		out[n] = ip.trilinear(i, j, k, fi, fj, fk)
	}
	return out
}

// SpecificEnergy is Lookup for a single month.
func (ip *Interpolator) SpecificEnergy(lon, lat, month float64) float64 {
	return ip.Lookup(lon, lat, month)[0]
}

// trilinear blends the up-to-eight nodes surrounding the lower corner
// (i, j, k). Zero-weight corners are skipped, so an upper corner past the
// end of a single-node axis is never read and grid nodes come back exactly.
func (ip *Interpolator) trilinear(i, j, k int, fi, fj, fk float64) float64 {
	g := ip.grid
	var sum float64
	for di := 0; di < 2; di++ {
		wi := weight(fi, di)
		if wi == 0 {
			continue
		}
		for dj := 0; dj < 2; dj++ {
			wj := weight(fj, dj)
			if wj == 0 {
				continue
			}
			for dk := 0; dk < 2; dk++ {
				wk := weight(fk, dk)
				if wk == 0 {
					continue
				}
				sum += wi * wj * wk * g.values[g.index(i+di, j+dj, k+dk)]
			}
		}
	}
	return sum
}

func weight(frac float64, upper int) float64 {
	if upper == 1 {
		return frac
	}
	return 1 - frac
}

// bracket finds the lower node index and fractional offset of x on an
// ascending axis. ok is false when x lies outside [axis[0], axis[n-1]].
func bracket(axis []float64, x float64) (idx int, frac float64, ok bool) {
	n := len(axis)
	if n == 0 || math.IsNaN(x) || x < axis[0] || x > axis[n-1] {
		return 0, 0, false
	}
	hi := sort.SearchFloat64s(axis, x)
	if hi == 0 {
		return 0, 0, true
	}
	lo := hi - 1
	return lo, (x - axis[lo]) / (axis[hi] - axis[lo]), true
}
