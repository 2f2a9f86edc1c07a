package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/phil-mansfield/table"
	"github.com/pkg/errors"
)

// ReadPointTable reads points from a whitespace-separated text table. cols
// gives the column index of each coordinate, e.g. []int{0, 1, 2} for z, y, x
// in the first three columns.
func ReadPointTable(fname string, cols []int) ([][]float64, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns given for point table %s", fname)
	}
	tab, err := table.ReadTable(fname, cols, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "reading point table %s", fname)
	}

	n := len(tab[0])
	pts := make([][]float64, n)
	buf := make([]float64, n*len(cols))
	for i := range pts {
		pts[i] = buf[i*len(cols) : (i+1)*len(cols)]
		for j := range cols {
			pts[i][j] = tab[j][i]
		}
	}
	return pts, nil
}

// WritePointTable writes points as a whitespace-separated text table with
// one point per line. Undefined coordinates are written as NaN.
func WritePointTable(fname string, pts [][]float64) error {
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "creating point table %s", fname)
	}
	defer f.Close()

	wr := bufio.NewWriter(f)
	for _, p := range pts {
		for j, x := range p {
			if j > 0 {
				wr.WriteByte(' ')
			}
			fmt.Fprintf(wr, "%.8g", x)
		}
		wr.WriteByte('\n')
	}
	if err := wr.Flush(); err != nil {
		return errors.Wrapf(err, "writing point table %s", fname)
	}
	return f.Close()
}

// ReadPoints reads a JSON list of points, e.g. [[z, y, x], ...].
func ReadPoints(fname string) ([][]float64, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "reading points file %s", fname)
	}
	pts := [][]float64{}
	if err := json.Unmarshal(b, &pts); err != nil {
		return nil, errors.Wrapf(err, "parsing points file %s", fname)
	}
	return pts, nil
}

// WritePoints writes pts as a JSON list. JSON cannot represent NaN or
// infinities, so points containing them are written as null.
func WritePoints(fname string, pts [][]float64) error {
	out := make([]interface{}, len(pts))
	for i, p := range pts {
		if valid(p) {
			out[i] = p
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "encoding points")
	}
	if err := os.WriteFile(fname, b, 0644); err != nil {
		return errors.Wrapf(err, "writing points file %s", fname)
	}
	return nil
}

func valid(p []float64) bool {
	for _, x := range p {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
