package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sbinet/npyio/npz"

	"solar_yield/internal/solar"
)

// Array names shared by the npz and JSON dataset formats.
const (
	ArrayValues = "pv_data"
	ArrayLons   = "lons"
	ArrayLats   = "lats"
)

var (
	ErrMissingArray     = errors.New("dataset array missing")
	ErrUnsupportedDType = errors.New("unsupported array dtype")
	ErrUnknownFormat    = errors.New("unknown dataset format")
)

// LoadGrid reads a specific-energy dataset, choosing the decoder by file
// extension (.npz or .json).
func LoadGrid(path string) (*solar.Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npz":
		return LoadNPZ(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		g, err := (&JSONGridParser{}).Parse(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// LoadNPZ reads the numpy archive produced by the grid export: a 3-D
// pv_data array (lon x lat x month) plus the lons and lats axes.
func LoadNPZ(path string) (*solar.Grid, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	lons, _, _, err := readNPZArray(r, ArrayLons)
	if err != nil {
		return nil, err
	}
	lats, _, _, err := readNPZArray(r, ArrayLats)
	if err != nil {
		return nil, err
	}
	values, shape, fortran, err := readNPZArray(r, ArrayValues)
	if err != nil {
		return nil, err
	}

	if len(shape) != 3 || shape[0] != len(lons) || shape[1] != len(lats) || shape[2] != solar.Months {
		return nil, fmt.Errorf("%s: shape %v, want [%d %d %d]: %w",
			ArrayValues, shape, len(lons), len(lats), solar.Months, solar.ErrShapeMismatch)
	}
	if fortran {
		values = fortranToC(values, shape)
	}

	return solar.NewGrid(lons, lats, values)
}

func readNPZArray(r *npz.Reader, name string) (values []float64, shape []int, fortran bool, err error) {
	key, ok := npzKey(r.Keys(), name)
	if !ok {
		return nil, nil, false, fmt.Errorf("%w: %q", ErrMissingArray, name)
	}
	hdr := r.Header(key)
	if hdr == nil {
		return nil, nil, false, fmt.Errorf("%w: %q", ErrMissingArray, name)
	}

	switch hdr.Descr.Type {
	case "<f8", "=f8", "f8":
		if err := r.Read(key, &values); err != nil {
			return nil, nil, false, fmt.Errorf("reading %s: %w", name, err)
		}
	case "<f4", "=f4", "f4":
		var v32 []float32
		if err := r.Read(key, &v32); err != nil {
			return nil, nil, false, fmt.Errorf("reading %s: %w", name, err)
		}
		values = make([]float64, len(v32))
		for i, v := range v32 {
			values[i] = float64(v)
		}
	default:
		return nil, nil, false, fmt.Errorf("%s: %w %q", name, ErrUnsupportedDType, hdr.Descr.Type)
	}

	return values, hdr.Descr.Shape, hdr.Descr.Fortran, nil
}

func npzKey(keys []string, name string) (string, bool) {
	for _, k := range keys {
		if k == name || k == name+".npy" {
			return k, true
		}
	}
	return "", false
}

// fortranToC reorders a column-major 3-D array into row-major order.
func fortranToC(src []float64, shape []int) []float64 {
	a, b, c := shape[0], shape[1], shape[2]
	dst := make([]float64, len(src))
	for i := 0; i < a; i++ {
		for j := 0; j < b; j++ {
			for k := 0; k < c; k++ {
				dst[(i*b+j)*c+k] = src[i+a*(j+b*k)]
			}
		}
	}
	return dst
}

// jsonGrid mirrors the npz layout. A null cell decodes as a gap (NaN).
type jsonGrid struct {
	Lons   []float64      `json:"lons"`
	Lats   []float64      `json:"lats"`
	Values [][][]*float64 `json:"pv_data"`
}

// JSONGridParser parses the JSON form of the dataset.
//
// Expected format:
//
//	{"lons": [...], "lats": [...], "pv_data": [[[12 values], ...], ...]}
type JSONGridParser struct{}

func (p *JSONGridParser) Parse(r io.Reader) (*solar.Grid, error) {
	var raw jsonGrid
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding dataset JSON: %w", err)
	}
	if raw.Lons == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingArray, ArrayLons)
	}
	if raw.Lats == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingArray, ArrayLats)
	}
	if raw.Values == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingArray, ArrayValues)
	}

	if len(raw.Values) != len(raw.Lons) {
		return nil, fmt.Errorf("%s: %d rows for %d lons: %w", ArrayValues, len(raw.Values), len(raw.Lons), solar.ErrShapeMismatch)
	}
	values := make([]float64, 0, len(raw.Lons)*len(raw.Lats)*solar.Months)
	for i, row := range raw.Values {
		if len(row) != len(raw.Lats) {
			return nil, fmt.Errorf("%s[%d]: %d columns for %d lats: %w", ArrayValues, i, len(row), len(raw.Lats), solar.ErrShapeMismatch)
		}
		for j, cell := range row {
			if len(cell) != solar.Months {
				return nil, fmt.Errorf("%s[%d][%d]: %d months: %w", ArrayValues, i, j, len(cell), solar.ErrShapeMismatch)
			}
			for _, v := range cell {
				if v == nil {
					values = append(values, math.NaN())
					continue
				}
				values = append(values, *v)
			}
		}
	}

	return solar.NewGrid(raw.Lons, raw.Lats, values)
}

// WriteJSONGrid encodes g in the format read by JSONGridParser.
func WriteJSONGrid(w io.Writer, g *solar.Grid) error {
	nLon, nLat, _ := g.Shape()
	out := jsonGrid{
		Lons:   g.Lons(),
		Lats:   g.Lats(),
		Values: make([][][]*float64, nLon),
	}
	for i := 0; i < nLon; i++ {
		out.Values[i] = make([][]*float64, nLat)
		for j := 0; j < nLat; j++ {
			cell := make([]*float64, solar.Months)
			for m := 1; m <= solar.Months; m++ {
				v := g.At(i, j, m)
				cell[m-1] = &v
			}
			out.Values[i][j] = cell
		}
	}
	return json.NewEncoder(w).Encode(out)
}
