package io

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gowarp"
	"github.com/phil-mansfield/gowarp/chunk"
	"github.com/phil-mansfield/gowarp/interpolate"
	"github.com/phil-mansfield/gowarp/rbf"
	"github.com/phil-mansfield/gowarp/volume"
)

func writeFile(t *testing.T, dir, name, text string) string {
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))
	return fname
}

func TestReadAlignment(t *testing.T) {
	dir := t.TempDir()
	fname := writeFile(t, dir, "points.json", `{
		"reference": [[1, 2, 3], [4, 5, 6]],
		"moving": [[10, 20, 30], [40, 50, 60]],
		"note": "ignored"
	}`)

	a, err := ReadAlignment(fname)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, a.Reference)
	assert.Equal(t, [][]float64{{10, 20, 30}, {40, 50, 60}}, a.Moving)

	src, dest := a.Pairs(true)
	assert.Equal(t, a.Moving, src)
	assert.Equal(t, a.Reference, dest)
	src, dest = a.PairsFor(ReferenceToMoving)
	assert.Equal(t, a.Reference, src)
	assert.Equal(t, a.Moving, dest)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, WriteAlignment(out, a))
	b, err := ReadAlignment(out)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReadAlignmentKeys(t *testing.T) {
	dir := t.TempDir()
	fname := writeFile(t, dir, "points.json",
		`{"atlas": [[0, 0, 0]], "sample": [[1, 1, 1]]}`)

	a, err := ReadAlignmentKeys(fname, "atlas", "sample")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1, 1}}, a.Moving)

	_, err = ReadAlignment(fname)
	assert.Error(t, err)
}

func TestReadAlignmentErrors(t *testing.T) {
	dir := t.TempDir()
	table := []string{
		`{"reference": [[0, 0, 0]], "moving": []}`,
		`{"reference": [[0, 0]], "moving": [[0, 0]]}`,
		`{"reference": [[0, 0, 0]], "moving": "nope"}`,
		`not json`,
	}
	for i, text := range table {
		fname := writeFile(t, dir, "bad.json", text)
		if _, err := ReadAlignment(fname); err == nil {
			t.Errorf("%d) Expected an error from %s.", i, text)
		}
	}

	_, err := ReadAlignment(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}

func TestAlignmentRescaleFlip(t *testing.T) {
	a := &Alignment{
		Reference: [][]float64{{0, 0, 0}},
		Moving:    [][]float64{{1, 2, 3}},
	}
	a.Rescale([3]float64{2, 4, 0.5})
	assert.Equal(t, []float64{2, 8, 1.5}, a.Moving[0])
	a.Flip(2, 10)
	assert.Equal(t, []float64{2, 8, 7.5}, a.Moving[0])
	a.Translate([3]float64{1, 0, -1})
	assert.Equal(t, []float64{3, 8, 6.5}, a.Moving[0])
	assert.Equal(t, []float64{0, 0, 0}, a.Reference[0])
}

func TestParseDirection(t *testing.T) {
	table := []struct {
		s  string
		d  Direction
		ok bool
	}{
		{"MovingToReference", MovingToReference, true},
		{"referencetomoving", ReferenceToMoving, true},
		{" ReferenceToMoving ", ReferenceToMoving, true},
		{"sideways", MovingToReference, false},
	}
	for i, test := range table {
		d, err := ParseDirection(test.s)
		if (err == nil) != test.ok || d != test.d {
			t.Errorf("%d) Expected ParseDirection(%q) = %s, got %s (%v).",
				i, test.s, test.d, d, err)
		}
	}
}

func TestPointTable(t *testing.T) {
	dir := t.TempDir()
	fname := writeFile(t, dir, "pts.txt",
		"1 0.5 1.5 2.5\n"+
			"2 3 4 5\n")

	pts, err := ReadPointTable(fname, []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 1.5, 2.5}, {3, 4, 5}}, pts)

	out := filepath.Join(dir, "out.txt")
	require.NoError(t, WritePointTable(out, pts))
	again, err := ReadPointTable(out, []int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, pts, again)

	_, err = ReadPointTable(fname, nil)
	assert.Error(t, err)
}

func TestPointsJSON(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "pts.json")
	pts := [][]float64{{1, 2, 3}, {math.NaN(), 0, 0}, {4, 5, 6}}
	require.NoError(t, WritePoints(fname, pts))

	b, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, "[[1,2,3],null,[4,5,6]]", string(b))

	got, err := ReadPoints(fname)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, nil, {4, 5, 6}}, got)
}

func TestRawVolume(t *testing.T) {
	dir := t.TempDir()
	shape := volume.Shape{3, 4, 5}

	for _, vt := range []VolumeType{Float32Volume, Uint32Volume} {
		fname := filepath.Join(dir, vt.String()+".vol")
		rv, err := CreateRawVolume(fname, shape, vt)
		require.NoError(t, err)
		assert.Equal(t, shape, rv.Shape())

		vals := make([]float64, 2*2*3)
		for i := range vals {
			vals[i] = float64(i) + 1
		}
		require.NoError(t, rv.WriteChunk(volume.Shape{1, 2, 1}, volume.Shape{2, 2, 3}, vals))
		require.Error(t, rv.WriteChunk(volume.Shape{2, 0, 0}, volume.Shape{2, 1, 1}, vals[:2]))
		require.NoError(t, rv.Close())

		hd, err := ReadVolumeHeader(fname)
		require.NoError(t, err)
		assert.Equal(t, vt, hd.Type)
		assert.Equal(t, [3]int64{3, 4, 5}, hd.Shape)

		src, err := ReadRawVolume(fname)
		require.NoError(t, err)
		assert.Equal(t, shape, src.Shape())
		assert.Equal(t, vt.Kind(), src.Kind())

		assert.Equal(t, 0.0, src.At(0, 0, 0))
		assert.Equal(t, 1.0, src.At(1, 2, 1))
		assert.Equal(t, 3.0, src.At(1, 2, 3))
		assert.Equal(t, 4.0, src.At(1, 3, 1))
		assert.Equal(t, 12.0, src.At(2, 3, 3))
		assert.Equal(t, 0.0, src.At(2, 3, 4))
	}
}

func TestRawVolumeErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateRawVolume(filepath.Join(dir, "a.vol"), volume.Shape{0, 1, 1}, Float32Volume)
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.vol", "this is not a volume file at all, not even close")
	_, err = ReadRawVolume(bad)
	assert.Error(t, err)

	_, err = ReadRawVolume(filepath.Join(dir, "missing.vol"))
	assert.Error(t, err)

	_, err = ParseVolumeType("Float64")
	assert.Error(t, err)
}

func TestRawVolumeJob(t *testing.T) {
	dir := t.TempDir()
	src := volume.NewFloat32(volume.Shape{6, 6, 6})
	for i := range src.Data {
		src.Data[i] = float32(i)
	}

	corners := [][]float64{}
	for _, z := range []float64{0, 5} {
		for _, y := range []float64{0, 5} {
			for _, x := range []float64{0, 5} {
				corners = append(corners, []float64{z, y, x})
			}
		}
	}
	w, err := gowarp.FitTransform(corners, corners, nil)
	require.NoError(t, err)
	axis := gowarp.Axis(0, 5, 2.5)
	a, err := gowarp.Approximate(w, [][]float64{axis, axis, axis}, nil)
	require.NoError(t, err)

	fname := filepath.Join(dir, "out.vol")
	rv, err := CreateRawVolume(fname, src.Shape(), Float32Volume)
	require.NoError(t, err)
	job, err := chunk.NewJob(a, src, rv, &chunk.Params{
		Workers: 3, ChunkLen: 1, Order: interpolate.Nearest,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, rv.Close())

	out, err := ReadRawVolume(fname)
	require.NoError(t, err)
	assert.Equal(t, src.Data, out.(*volume.Float32).Data)
}

func TestWarpVolumeConfig(t *testing.T) {
	dir := t.TempDir()
	fname := writeFile(t, dir, "warp.config", `[Warp]
Alignment = points.json
GridSpacing = 10
Kernel = gaussian
Smoothing = 0.5
Order = cubic
Workers = 2
Background = -1

[Volume]
Input = in.vol
Output = out.vol
Shape = 10 20 30
`)

	wrap, err := ReadWarpVolumeConfig(fname)
	require.NoError(t, err)
	con := &wrap.Warp
	assert.Equal(t, ReferenceToMoving, con.DirectionValue())
	assert.Equal(t, DefaultReferenceKey, con.ReferenceKey)

	p, err := con.RBFParams()
	require.NoError(t, err)
	assert.Equal(t, rbf.Gaussian, p.Kernel)
	assert.Equal(t, 0.5, p.Smoothing)

	cp, err := con.ChunkParams()
	require.NoError(t, err)
	assert.Equal(t, interpolate.Cubic, cp.Order)
	assert.Equal(t, 2, cp.Workers)
	assert.Equal(t, -1.0, cp.Background)

	shape, err := wrap.Volume.ShapeValue()
	require.NoError(t, err)
	assert.Equal(t, volume.Shape{10, 20, 30}, shape)
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	table := []string{
		"[Warp]\nGridSpacing = 10\n[Volume]\nInput = a\nOutput = b\n",
		"[Warp]\nAlignment = a\n[Volume]\nInput = a\nOutput = b\n",
		"[Warp]\nAlignment = a\nGridSpacing = 1\nKernel = bessel\n[Volume]\nInput = a\nOutput = b\n",
		"[Warp]\nAlignment = a\nGridSpacing = 1\nOrder = quadratic\n[Volume]\nInput = a\nOutput = b\n",
		"[Warp]\nAlignment = a\nGridSpacing = 1\n[Volume]\nInput = a\n",
		"[Warp]\nAlignment = a\nGridSpacing = 1\n[Volume]\nInput = a\nOutput = b\nShape = 1 2\n",
		"[Warp]\nAlignment = a\nGridSpacing = 1\nWorkers = -2\n[Volume]\nInput = a\nOutput = b\n",
		"[Warp]\nAlignment = a\nGridSpacing = 1\nUnknown = 3\n[Volume]\nInput = a\nOutput = b\n",
	}
	for i, text := range table {
		fname := writeFile(t, dir, "bad.config", text)
		if _, err := ReadWarpVolumeConfig(fname); err == nil {
			t.Errorf("%d) Expected an error from config:\n%s", i, text)
		}
	}
}

func TestWarpPointsConfig(t *testing.T) {
	dir := t.TempDir()
	fname := writeFile(t, dir, "points.config", `[Warp]
Alignment = points.json

[Points]
Input = cells.txt
Output = warped.json
Columns = 2, 3, 4
`)
	wrap, err := ReadWarpPointsConfig(fname)
	require.NoError(t, err)
	assert.Equal(t, MovingToReference, wrap.Warp.DirectionValue())
	assert.False(t, wrap.Warp.ValidGridSpacing())

	cols, err := wrap.Points.ColumnsValue()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, cols)
	assert.False(t, IsJSON(wrap.Points.Input))
	assert.True(t, IsJSON(wrap.Points.Output))
}

func TestExampleConfigsParse(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadWarpVolumeConfig(writeFile(t, dir, "v.config", ExampleWarpVolumeFile))
	assert.NoError(t, err)
	_, err = ReadWarpPointsConfig(writeFile(t, dir, "p.config", ExampleWarpPointsFile))
	assert.NoError(t, err)
}
