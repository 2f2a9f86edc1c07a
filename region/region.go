/*package region maps warped points and volumes onto a segmentation volume and
gathers per-segment statistics.

Segment id 0 means "not in any segment": it is given to points that warp
outside the segmentation or to undefined coordinates.
*/
package region

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/phil-mansfield/gowarp"
	"github.com/phil-mansfield/gowarp/chunk"
	"github.com/phil-mansfield/gowarp/interpolate"
	"github.com/phil-mansfield/gowarp/volume"
)

// SegmentIDs warps every point in pts into the segmentation's voxel space
// with w and returns the id of the segment each lands in.
func SegmentIDs(
	ctx context.Context, w gowarp.Warper, pts [][]float64, seg volume.Source,
	p *chunk.Params,
) ([]uint32, error) {
	warped, err := chunk.WarpPoints(ctx, w, pts, p)
	if err != nil {
		return nil, err
	}

	ids := make([]uint32, len(warped))
	for i, x := range warped {
		ids[i] = Lookup(seg, x)
	}
	return ids, nil
}

// Lookup returns the segment id at the voxel nearest to x, or 0 if x is
// undefined or outside seg.
func Lookup(seg volume.Source, x []float64) uint32 {
	shape := seg.Shape()
	var idx [3]int
	for i := range idx {
		if math.IsNaN(x[i]) {
			return 0
		}
		r := math.Floor(x[i] + 0.5)
		if r < 0 || r >= float64(shape[i]) {
			return 0
		}
		idx[i] = int(r)
	}
	return volume.LabelOf(seg.At(idx[0], idx[1], idx[2]))
}

// Count returns the number of occurrences of each id. Id 0 is only included
// if background is true.
func Count(ids []uint32, background bool) map[uint32]int {
	counts := map[uint32]int{}
	for _, id := range ids {
		if id == 0 && !background {
			continue
		}
		counts[id]++
	}
	return counts
}

// Filter returns the points whose id is in keep.
func Filter(pts [][]float64, ids []uint32, keep ...uint32) [][]float64 {
	set := map[uint32]bool{}
	for _, id := range keep {
		set[id] = true
	}
	out := [][]float64{}
	for i := range pts {
		if set[ids[i]] {
			out = append(out, pts[i])
		}
	}
	return out
}

// Stats are the voxel statistics of one segment.
type Stats struct {
	ID    uint32
	Count int64
	Total float64
}

// Mean returns the mean intensity of the segment's voxels.
func (s Stats) Mean() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Total / float64(s.Count)
}

// accumulator is a volume.Destination that receives warped segment ids for
// the voxels of an intensity volume and adds each voxel's intensity to its
// segment's totals.
type accumulator struct {
	intensity volume.Source

	mu    sync.Mutex
	stats map[uint32]*Stats
}

func (acc *accumulator) Shape() volume.Shape { return acc.intensity.Shape() }

func (acc *accumulator) WriteChunk(
	offset, shape volume.Shape, vals []float64,
) error {
	if err := volume.CheckChunk(acc.Shape(), offset, shape, len(vals)); err != nil {
		return err
	}

	local := map[uint32]*Stats{}
	g := volume.NewGrid(offset, shape)
	for i, val := range vals {
		id := volume.LabelOf(val)
		s, ok := local[id]
		if !ok {
			s = &Stats{ID: id}
			local[id] = s
		}
		z, y, x := g.Coords(i)
		s.Count++
		s.Total += acc.intensity.At(z, y, x)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	for id, s := range local {
		if total, ok := acc.stats[id]; ok {
			total.Count += s.Count
			total.Total += s.Total
		} else {
			acc.stats[id] = s
		}
	}
	return nil
}

// IntensityStats warps seg onto the voxels of intensity and returns the
// voxel count and total intensity of every segment that receives at least
// one voxel, sorted by id. a maps intensity voxel coordinates to
// segmentation voxel coordinates. Voxels that map outside seg are counted
// under id 0.
//
// p.Order and p.Background are ignored: segment ids are always looked up
// with nearest-neighbour sampling.
func IntensityStats(
	ctx context.Context, a *gowarp.Approximation,
	seg, intensity volume.Source, p *chunk.Params,
) ([]Stats, error) {
	if p == nil {
		p = chunk.DefaultParams()
	}
	jp := *p
	jp.Order, jp.Background = interpolate.Nearest, 0

	acc := &accumulator{intensity: intensity, stats: map[uint32]*Stats{}}
	job, err := chunk.NewJob(a, seg, acc, &jp)
	if err != nil {
		return nil, err
	}
	if err := job.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]Stats, 0, len(acc.stats))
	for _, s := range acc.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
