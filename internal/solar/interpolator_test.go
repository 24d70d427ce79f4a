package solar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolator_NodesRoundTrip(t *testing.T) {
	g := linearGrid(t)
	ip := NewInterpolator(g)

	for i, lon := range testLons {
		for j, lat := range testLats {
			for m := 1; m <= Months; m++ {
				got := ip.SpecificEnergy(lon, lat, float64(m))
				assert.Equal(t, g.At(i, j, m), got, "node (%v, %v, %d)", lon, lat, m)
			}
		}
	}
}

func TestInterpolator_Trilinear(t *testing.T) {
	ip := NewInterpolator(linearGrid(t))

	points := [][3]float64{
		{5, 5, 6.5},
		{2.5, 7.5, 1},
		{17, 0.1, 11.9},
		{20, 10, 12},
		{0, 0, 1},
	}
	for _, p := range points {
		got := ip.SpecificEnergy(p[0], p[1], p[2])
		assert.InDelta(t, linearValue(p[0], p[1], p[2]), got, 1e-12, "point %v", p)
	}
}

func TestInterpolator_LookupPreservesOrder(t *testing.T) {
	ip := NewInterpolator(linearGrid(t))

	months := []float64{12, 1, 6}
	got := ip.Lookup(5, 5, months...)
	require.Len(t, got, 3)
	for n, m := range months {
		assert.InDelta(t, linearValue(5, 5, m), got[n], 1e-12)
	}
}

func TestInterpolator_OutOfBoundsIsZero(t *testing.T) {
	ip := NewInterpolator(linearGrid(t))

	tests := []struct {
		name     string
		lon, lat float64
	}{
		{"west of grid", -0.001, 5},
		{"east of grid", 20.001, 5},
		{"south of grid", 5, -1},
		{"north of grid", 5, 10.5},
		{"nan", math.NaN(), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ip.Lookup(tt.lon, tt.lat, 1, 6, 12)
			assert.Equal(t, []float64{0, 0, 0}, got)
			assert.False(t, ip.Covers(tt.lon, tt.lat))
		})
	}
}

func TestInterpolator_MonthOutOfBoundsPerElement(t *testing.T) {
	ip := NewInterpolator(linearGrid(t))

	got := ip.Lookup(5, 5, 0, 1, 12.5, 12)
	require.Len(t, got, 4)
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, linearValue(5, 5, 1), got[1], 1e-12)
	assert.Equal(t, 0.0, got[2])
	assert.InDelta(t, linearValue(5, 5, 12), got[3], 1e-12)
}

func TestInterpolator_FiniteInsideCoverage(t *testing.T) {
	ip := NewInterpolator(linearGrid(t))
	assert.True(t, ip.Covers(20, 0))

	for lon := 0.0; lon <= 20; lon += 2.5 {
		for lat := 0.0; lat <= 10; lat += 2.5 {
			for _, v := range ip.Lookup(lon, lat, monthAxis...) {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
				assert.Greater(t, v, 0.0)
			}
		}
	}
}

func TestInterpolator_SingleNodeAxis(t *testing.T) {
	values := make([]float64, 2*Months)
	for m := 0; m < Months; m++ {
		values[m] = 1
		values[Months+m] = 3
	}
	g, err := NewGrid([]float64{0, 10}, []float64{45}, values)
	require.NoError(t, err)
	ip := NewInterpolator(g)

	assert.InDelta(t, 2.0, ip.SpecificEnergy(5, 45, 3), 1e-12)
	assert.Equal(t, 0.0, ip.SpecificEnergy(5, 45.1, 3))
}

func TestBracket(t *testing.T) {
	axis := []float64{0, 10, 30}

	idx, frac, ok := bracket(axis, 0)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0.0, frac)

	idx, frac, ok = bracket(axis, 20)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.5, frac, 1e-12)

	idx, frac, ok = bracket(axis, 30)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1.0, frac)

	_, _, ok = bracket(axis, 30.0001)
	assert.False(t, ok)
}
