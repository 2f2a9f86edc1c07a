package io

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/gowarp/chunk"
	"github.com/phil-mansfield/gowarp/interpolate"
	"github.com/phil-mansfield/gowarp/rbf"
	"github.com/phil-mansfield/gowarp/volume"
)

const (
	ExampleWarpVolumeFile = `[Warp]

#######################
# Required Parameters #
#######################

# JSON file with "reference" and "moving" point lists.
Alignment = path/to/alignment.json

# Spacing between lattice nodes of the approximated warp, in voxels.
GridSpacing = 20

#######################
# Optional Parameters #
#######################

# ReferenceKey = reference
# MovingKey = moving

# Direction must be one of [ ReferenceToMoving | MovingToReference ]. Volume
# warps resample the moving image into the reference space, which needs the
# ReferenceToMoving warp.
# Direction = ReferenceToMoving

# Kernel must be one of [ thin_plate | multiquadric | inverse | gaussian |
# linear | cubic | quintic ].
# Kernel = thin_plate
# Epsilon = 0 # Estimated from the points if not set.
# Smoothing = 0

# Order must be one of [ Nearest | Linear | Cubic ]. Label volumes are always
# sampled with Nearest.
# Order = Linear
# Background = 0

# Workers = 0 # One per CPU if not set.
# ChunkLen = 0
# BatchSize = 10000

# Log = true
# LogFile = log.out
# ProfileFile = prof.out

[Volume]

#######################
# Required Parameters #
#######################

# Raw volume files: a small header followed by Float32 or Uint32 voxels.
Input = path/to/moving.vol
Output = path/to/warped.vol

#######################
# Optional Parameters #
#######################

# Shape of the output volume as "z y x". Defaults to the input's shape.
# Shape = 512 1024 1024

# Type must be one of [ Float32 | Uint32 ]. Defaults to the input's type.
# Type = Float32`

	ExampleWarpPointsFile = `[Warp]

#######################
# Required Parameters #
#######################

Alignment = path/to/alignment.json

#######################
# Optional Parameters #
#######################

# Direction = MovingToReference
# Kernel = thin_plate
# Smoothing = 0

# If set, points are warped with a lattice approximation instead of the
# exact transform.
# GridSpacing = 20
# Order = Linear

# Workers = 0
# Log = true

[Points]

#######################
# Required Parameters #
#######################

# Either a JSON list of [z, y, x] points (files ending in .json) or a
# whitespace-separated text table.
Input = path/to/points.txt
Output = path/to/warped.txt

#######################
# Optional Parameters #
#######################

# Columns of z, y and x in text tables.
# Columns = 0 1 2`
)

// WarpConfig holds the parameters shared by every warping mode.
type WarpConfig struct {
	// Required
	Alignment string

	// Optional
	ReferenceKey, MovingKey string
	Direction               string
	Kernel                  string
	Epsilon, Smoothing      float64
	GridSpacing             float64
	Order                   string
	Background              float64
	Workers, ChunkLen       int
	BatchSize               int
	Log                     bool
	LogFile, ProfileFile    string
}

func (con *WarpConfig) ValidAlignment() bool {
	return con.Alignment != ""
}
func (con *WarpConfig) ValidGridSpacing() bool {
	return con.GridSpacing > 0
}
func (con *WarpConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *WarpConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}

// CheckInit checks that every parameter can be parsed.
func (con *WarpConfig) CheckInit() error {
	if !con.ValidAlignment() {
		return fmt.Errorf("Invalid/non-existent 'Alignment' value.")
	} else if con.ReferenceKey == "" || con.MovingKey == "" {
		return fmt.Errorf("'ReferenceKey' and 'MovingKey' cannot be empty.")
	} else if con.ReferenceKey == con.MovingKey {
		return fmt.Errorf(
			"'ReferenceKey' and 'MovingKey' are both '%s'.", con.MovingKey,
		)
	} else if con.GridSpacing < 0 {
		return fmt.Errorf("'GridSpacing' is negative, %g.", con.GridSpacing)
	} else if con.Smoothing < 0 {
		return fmt.Errorf("'Smoothing' is negative, %g.", con.Smoothing)
	} else if con.Epsilon < 0 {
		return fmt.Errorf("'Epsilon' is negative, %g.", con.Epsilon)
	}

	if _, err := ParseDirection(con.Direction); err != nil {
		return err
	} else if _, err := rbf.ParseKernel(con.Kernel); err != nil {
		return err
	} else if _, err := interpolate.ParseOrder(con.Order); err != nil {
		return err
	} else if _, err := con.ChunkParams(); err != nil {
		return err
	}
	return nil
}

// DirectionValue returns the parsed Direction.
func (con *WarpConfig) DirectionValue() Direction {
	d, _ := ParseDirection(con.Direction)
	return d
}

// RBFParams returns the fitting parameters.
func (con *WarpConfig) RBFParams() (*rbf.Params, error) {
	k, err := rbf.ParseKernel(con.Kernel)
	if err != nil {
		return nil, err
	}
	p := rbf.DefaultParams()
	p.Kernel, p.Epsilon, p.Smoothing = k, con.Epsilon, con.Smoothing
	return p, nil
}

// ChunkParams returns the parameters for chunked warping.
func (con *WarpConfig) ChunkParams() (*chunk.Params, error) {
	order, err := interpolate.ParseOrder(con.Order)
	if err != nil {
		return nil, err
	}
	if con.Workers < 0 {
		return nil, fmt.Errorf("'Workers' is negative, %d.", con.Workers)
	} else if con.ChunkLen < 0 {
		return nil, fmt.Errorf("'ChunkLen' is negative, %d.", con.ChunkLen)
	} else if con.BatchSize < 0 {
		return nil, fmt.Errorf("'BatchSize' is negative, %d.", con.BatchSize)
	}
	return &chunk.Params{
		Workers: con.Workers, ChunkLen: con.ChunkLen, BatchSize: con.BatchSize,
		Order: order, Background: con.Background, Log: con.Log,
	}, nil
}

// VolumeConfig describes the volumes read and written by WarpVolume mode.
type VolumeConfig struct {
	// Required
	Input, Output string

	// Optional
	Shape string
	Type  string
}

func (con *VolumeConfig) ValidInput() bool {
	return con.Input != ""
}
func (con *VolumeConfig) ValidOutput() bool {
	return con.Output != ""
}

// CheckInit checks that every parameter can be parsed.
func (con *VolumeConfig) CheckInit() error {
	if !con.ValidInput() {
		return fmt.Errorf("Invalid/non-existent 'Input' value.")
	} else if !con.ValidOutput() {
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	} else if con.Input == con.Output {
		return fmt.Errorf("'Input' and 'Output' are both '%s'.", con.Input)
	}

	if con.Shape != "" {
		if _, err := con.ShapeValue(); err != nil {
			return err
		}
	}
	if con.Type != "" {
		if _, err := ParseVolumeType(con.Type); err != nil {
			return err
		}
	}
	return nil
}

// ShapeValue parses Shape.
func (con *VolumeConfig) ShapeValue() (volume.Shape, error) {
	vals, err := parseInts(con.Shape, "Shape")
	if err != nil {
		return volume.Shape{}, err
	} else if len(vals) != 3 {
		return volume.Shape{}, fmt.Errorf(
			"'Shape' must have 3 values, but '%s' has %d.", con.Shape, len(vals),
		)
	}
	shape := volume.Shape{vals[0], vals[1], vals[2]}
	for i := range shape {
		if shape[i] <= 0 {
			return volume.Shape{}, fmt.Errorf(
				"'Shape' values must be positive, got '%s'.", con.Shape,
			)
		}
	}
	return shape, nil
}

// PointsConfig describes the point lists read and written by WarpPoints mode.
type PointsConfig struct {
	// Required
	Input, Output string

	// Optional
	Columns string
}

func (con *PointsConfig) ValidInput() bool {
	return con.Input != ""
}
func (con *PointsConfig) ValidOutput() bool {
	return con.Output != ""
}

// IsJSON returns true if the named file holds a JSON point list.
func IsJSON(fname string) bool {
	return strings.HasSuffix(strings.ToLower(fname), ".json")
}

// CheckInit checks that every parameter can be parsed.
func (con *PointsConfig) CheckInit() error {
	if !con.ValidInput() {
		return fmt.Errorf("Invalid/non-existent 'Input' value.")
	} else if !con.ValidOutput() {
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	}
	cols, err := con.ColumnsValue()
	if err != nil {
		return err
	} else if len(cols) != 3 {
		return fmt.Errorf(
			"'Columns' must have 3 values, but '%s' has %d.",
			con.Columns, len(cols),
		)
	}
	return nil
}

// ColumnsValue parses Columns.
func (con *PointsConfig) ColumnsValue() ([]int, error) {
	cols, err := parseInts(con.Columns, "Columns")
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c < 0 {
			return nil, fmt.Errorf("'Columns' contains negative index %d.", c)
		}
	}
	return cols, nil
}

func parseInts(s, name string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	out := make([]int, len(fields))
	for i := range fields {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf(
				"'%s' value '%s' is not an integer.", name, fields[i],
			)
		}
		out[i] = n
	}
	return out, nil
}

func defaultWarpConfig() WarpConfig {
	return WarpConfig{
		ReferenceKey: DefaultReferenceKey,
		MovingKey:    DefaultMovingKey,
		Kernel:       rbf.ThinPlate.String(),
		Order:        interpolate.Linear.String(),
	}
}

type WarpVolumeWrapper struct {
	Warp   WarpConfig
	Volume VolumeConfig
}

type WarpPointsWrapper struct {
	Warp   WarpConfig
	Points PointsConfig
}

func DefaultWarpVolumeWrapper() *WarpVolumeWrapper {
	con := defaultWarpConfig()
	con.Direction = ReferenceToMoving.String()
	return &WarpVolumeWrapper{Warp: con}
}

func DefaultWarpPointsWrapper() *WarpPointsWrapper {
	con := defaultWarpConfig()
	con.Direction = MovingToReference.String()
	return &WarpPointsWrapper{
		Warp: con, Points: PointsConfig{Columns: "0 1 2"},
	}
}

// ReadWarpVolumeConfig reads and checks a WarpVolume configuration file.
func ReadWarpVolumeConfig(fname string) (*WarpVolumeWrapper, error) {
	wrap := DefaultWarpVolumeWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Warp.CheckInit(); err != nil {
		return nil, err
	} else if !wrap.Warp.ValidGridSpacing() {
		return nil, fmt.Errorf(
			"Volume warps need a positive 'GridSpacing' value.",
		)
	} else if err := wrap.Volume.CheckInit(); err != nil {
		return nil, err
	}
	return wrap, nil
}

// ReadWarpPointsConfig reads and checks a WarpPoints configuration file.
func ReadWarpPointsConfig(fname string) (*WarpPointsWrapper, error) {
	wrap := DefaultWarpPointsWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Warp.CheckInit(); err != nil {
		return nil, err
	} else if err := wrap.Points.CheckInit(); err != nil {
		return nil, err
	}
	return wrap, nil
}
