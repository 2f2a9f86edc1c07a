package io

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultReferenceKey and DefaultMovingKey are the keys under which
	// alignment files store their two point lists.
	DefaultReferenceKey = "reference"
	DefaultMovingKey    = "moving"
)

// Alignment is a set of corresponding landmarks. Reference[i] and Moving[i]
// are the same anatomical point in the two spaces, given as (z, y, x).
type Alignment struct {
	Reference, Moving [][]float64
}

// Direction selects which way an Alignment is fit.
type Direction int

const (
	// MovingToReference warps points in the moving space into the
	// reference space.
	MovingToReference Direction = iota
	// ReferenceToMoving warps points in the reference space into the
	// moving space. This is the direction volume warps need, since every
	// output voxel in the reference space is looked up in the moving image.
	ReferenceToMoving
)

func (d Direction) String() string {
	switch d {
	case MovingToReference:
		return "MovingToReference"
	case ReferenceToMoving:
		return "ReferenceToMoving"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses a Direction name, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movingtoreference":
		return MovingToReference, nil
	case "referencetomoving":
		return ReferenceToMoving, nil
	}
	return MovingToReference, fmt.Errorf(
		"unrecognized direction '%s', must be MovingToReference or "+
			"ReferenceToMoving", s,
	)
}

// Pairs returns the correspondences as (src, dest) lists. If forward is
// true, src is the moving space and dest the reference space.
func (a *Alignment) Pairs(forward bool) (src, dest [][]float64) {
	if forward {
		return a.Moving, a.Reference
	}
	return a.Reference, a.Moving
}

// PairsFor returns the correspondences as (src, dest) lists for d.
func (a *Alignment) PairsFor(d Direction) (src, dest [][]float64) {
	return a.Pairs(d == MovingToReference)
}

// Check returns an error if the two lists differ in length or contain points
// that are not 3D.
func (a *Alignment) Check() error {
	if len(a.Reference) != len(a.Moving) {
		return fmt.Errorf(
			"alignment has %d reference points but %d moving points",
			len(a.Reference), len(a.Moving),
		)
	}
	for i := range a.Reference {
		if len(a.Reference[i]) != 3 || len(a.Moving[i]) != 3 {
			return fmt.Errorf("alignment point %d is not 3D", i)
		}
	}
	return nil
}

// Rescale multiplies each moving coordinate by the corresponding factor, e.g.
// to map points picked on a downsampled image back onto the full-size one.
func (a *Alignment) Rescale(factors [3]float64) {
	for _, p := range a.Moving {
		for j := range p {
			p[j] *= factors[j]
		}
	}
}

// Flip mirrors the moving points along axis within a volume of the given
// extent along that axis: x becomes extent - 1 - x.
func (a *Alignment) Flip(axis, extent int) {
	for _, p := range a.Moving {
		p[axis] = float64(extent-1) - p[axis]
	}
}

// Translate adds delta to every moving point, e.g. to undo a clip.
func (a *Alignment) Translate(delta [3]float64) {
	for _, p := range a.Moving {
		for j := range p {
			p[j] += delta[j]
		}
	}
}

// ReadAlignment reads an alignment file with the default keys.
func ReadAlignment(fname string) (*Alignment, error) {
	return ReadAlignmentKeys(fname, DefaultReferenceKey, DefaultMovingKey)
}

// ReadAlignmentKeys reads a JSON alignment file whose point lists are stored
// under refKey and movKey. Any other keys are ignored.
func ReadAlignmentKeys(fname, refKey, movKey string) (*Alignment, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "reading alignment file %s", fname)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing alignment file %s", fname)
	}

	a := &Alignment{}
	for _, field := range []struct {
		key string
		pts *[][]float64
	}{{refKey, &a.Reference}, {movKey, &a.Moving}} {
		raw, ok := doc[field.key]
		if !ok {
			return nil, errors.Errorf(
				"alignment file %s has no '%s' points", fname, field.key,
			)
		}
		if err := json.Unmarshal(raw, field.pts); err != nil {
			return nil, errors.Wrapf(
				err, "parsing '%s' points in %s", field.key, fname,
			)
		}
	}

	if err := a.Check(); err != nil {
		return nil, errors.Wrapf(err, "alignment file %s", fname)
	}
	return a, nil
}

// WriteAlignment writes a to fname with the default keys.
func WriteAlignment(fname string, a *Alignment) error {
	b, err := json.Marshal(map[string][][]float64{
		DefaultReferenceKey: a.Reference,
		DefaultMovingKey:    a.Moving,
	})
	if err != nil {
		return errors.Wrap(err, "encoding alignment")
	}
	if err := os.WriteFile(fname, b, 0644); err != nil {
		return errors.Wrapf(err, "writing alignment file %s", fname)
	}
	return nil
}
