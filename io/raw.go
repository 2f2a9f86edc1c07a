package io

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/phil-mansfield/gowarp/volume"
)

var end = binary.LittleEndian

// VolumeType is the voxel type of a raw volume file.
type VolumeType int64

const (
	Float32Volume VolumeType = iota
	Uint32Volume
)

func (t VolumeType) String() string {
	switch t {
	case Float32Volume:
		return "Float32"
	case Uint32Volume:
		return "Uint32"
	}
	return fmt.Sprintf("VolumeType(%d)", int64(t))
}

// ParseVolumeType parses "Float32" or "Uint32".
func ParseVolumeType(s string) (VolumeType, error) {
	switch s {
	case "Float32", "float32":
		return Float32Volume, nil
	case "Uint32", "uint32":
		return Uint32Volume, nil
	}
	return Float32Volume, fmt.Errorf(
		"unrecognized volume type '%s', must be Float32 or Uint32", s,
	)
}

// Kind returns the kind of volume stored with this voxel type.
func (t VolumeType) Kind() volume.Kind {
	if t == Uint32Volume {
		return volume.Labels
	}
	return volume.Intensity
}

/*
The binary format used for raw volumes is as follows:
    |-- 1 --||-- ... 2 ... --|

    1 - (VolumeHeader) Endianness flag (-1 for little endian), the size of
        the header, the voxel type and the (z, y, x) shape.
    2 - ([]float32 or []uint32) Contiguous block of voxels with x varying
        fastest.
*/
type VolumeHeader struct {
	Endianness int64
	HeaderSize int64
	Type       VolumeType
	Shape      [3]int64
}

func (hd *VolumeHeader) shape() volume.Shape {
	return volume.Shape{int(hd.Shape[0]), int(hd.Shape[1]), int(hd.Shape[2])}
}

const voxelSize = 4

// RawVolume is a volume.Destination backed by a raw volume file. Chunks are
// written at their offset in the file, so concurrent writes of disjoint
// chunks are safe.
type RawVolume struct {
	f     *os.File
	fname string
	hd    VolumeHeader
	grid  volume.Grid
}

// CreateRawVolume creates (or truncates) fname and sizes it to hold a volume
// of the given shape. Voxels start out as zero.
func CreateRawVolume(
	fname string, shape volume.Shape, t VolumeType,
) (*RawVolume, error) {
	for i := range shape {
		if shape[i] <= 0 {
			return nil, fmt.Errorf("cannot create volume of shape %v", shape)
		}
	}

	f, err := os.Create(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "creating raw volume %s", fname)
	}

	rv := &RawVolume{f: f, fname: fname}
	rv.hd.Endianness = -1
	rv.hd.HeaderSize = int64(unsafe.Sizeof(rv.hd))
	rv.hd.Type = t
	for i := range shape {
		rv.hd.Shape[i] = int64(shape[i])
	}
	rv.grid.Init(volume.Shape{}, shape)

	if err := binary.Write(f, end, &rv.hd); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "writing header of %s", fname)
	}
	size := rv.hd.HeaderSize + int64(shape.Size())*voxelSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "sizing raw volume %s", fname)
	}
	return rv, nil
}

// Shape returns the (z, y, x) shape of the volume.
func (rv *RawVolume) Shape() volume.Shape { return rv.grid.Width }

// Type returns the voxel type.
func (rv *RawVolume) Type() VolumeType { return rv.hd.Type }

// WriteChunk encodes vals with the file's voxel type and writes them row by
// row at their position in the file.
func (rv *RawVolume) WriteChunk(
	offset, shape volume.Shape, vals []float64,
) error {
	if err := volume.CheckChunk(rv.Shape(), offset, shape, len(vals)); err != nil {
		return err
	}

	rowLen := shape[2]
	buf := make([]byte, rowLen*voxelSize)
	for row := 0; row < shape[0]*shape[1]; row++ {
		z, y := offset[0]+row/shape[1], offset[1]+row%shape[1]
		for i, val := range vals[row*rowLen : (row+1)*rowLen] {
			end.PutUint32(buf[i*voxelSize:], rv.encode(val))
		}
		pos := rv.hd.HeaderSize + int64(rv.grid.Idx(z, y, offset[2]))*voxelSize
		if _, err := rv.f.WriteAt(buf, pos); err != nil {
			return errors.Wrapf(err, "writing chunk to %s", rv.fname)
		}
	}
	return nil
}

func (rv *RawVolume) encode(val float64) uint32 {
	if rv.hd.Type == Uint32Volume {
		return volume.LabelOf(val)
	}
	return math.Float32bits(float32(val))
}

// Close closes the underlying file.
func (rv *RawVolume) Close() error {
	if err := rv.f.Close(); err != nil {
		return errors.Wrapf(err, "closing raw volume %s", rv.fname)
	}
	return nil
}

// ReadVolumeHeader reads and checks the header of a raw volume file.
func ReadVolumeHeader(fname string) (*VolumeHeader, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "opening raw volume %s", fname)
	}
	defer f.Close()
	return readVolumeHeader(f, fname)
}

func readVolumeHeader(f *os.File, fname string) (*VolumeHeader, error) {
	hd := &VolumeHeader{}
	if err := binary.Read(f, end, hd); err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", fname)
	}

	if hd.Endianness != -1 {
		return nil, fmt.Errorf("%s is not a little endian raw volume", fname)
	} else if hd.HeaderSize != int64(unsafe.Sizeof(*hd)) {
		return nil, fmt.Errorf(
			"header of %s has size %d, expected %d",
			fname, hd.HeaderSize, unsafe.Sizeof(*hd),
		)
	} else if hd.Type != Float32Volume && hd.Type != Uint32Volume {
		return nil, fmt.Errorf("%s has unknown voxel type %d", fname, hd.Type)
	}
	for i := range hd.Shape {
		if hd.Shape[i] <= 0 {
			return nil, fmt.Errorf("%s has invalid shape %v", fname, hd.Shape)
		}
	}
	return hd, nil
}

// ReadRawVolume loads a raw volume file into memory. The result is a
// *volume.Float32 or a *volume.Uint32 depending on the file's voxel type.
func ReadRawVolume(fname string) (volume.Source, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "opening raw volume %s", fname)
	}
	defer f.Close()

	hd, err := readVolumeHeader(f, fname)
	if err != nil {
		return nil, err
	}

	shape := hd.shape()
	switch hd.Type {
	case Float32Volume:
		data := make([]float32, shape.Size())
		if err := binary.Read(f, end, data); err != nil {
			return nil, errors.Wrapf(err, "reading voxels of %s", fname)
		}
		return volume.Float32FromData(shape, data), nil
	default:
		data := make([]uint32, shape.Size())
		if err := binary.Read(f, end, data); err != nil {
			return nil, errors.Wrapf(err, "reading voxels of %s", fname)
		}
		return volume.Uint32FromData(shape, data), nil
	}
}
