package chunk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/gowarp"
	"github.com/phil-mansfield/gowarp/volume"
)

// Job warps a source volume into a destination volume. For every
// destination voxel (z, y, x) the Approximation gives the coordinate in the
// source volume that is sampled to produce the output value.
//
// A Job may be Run more than once; every run rewrites the same output.
type Job struct {
	approx  *gowarp.Approximation
	dst     volume.Destination
	sampler *volume.Sampler
	shape   volume.Shape

	p      Params
	chunks []Chunk
	states []atomic.Int32
	active atomic.Bool
	mu     sync.Mutex
}

// NewJob checks that the warp, volumes and parameters are compatible and
// splits the destination into chunks along z. p may be nil.
func NewJob(
	a *gowarp.Approximation, src volume.Source, dst volume.Destination,
	p *Params,
) (*Job, error) {
	if p == nil {
		p = DefaultParams()
	}
	if a.InputDim() != 3 {
		return nil, &gowarp.DimensionMismatchError{
			What: "volume warp input dimension", Index: -1,
			Expected: 3, Actual: a.InputDim(),
		}
	} else if a.OutputDim() != 3 {
		return nil, &gowarp.DimensionMismatchError{
			What: "volume warp output dimension", Index: -1,
			Expected: 3, Actual: a.OutputDim(),
		}
	}

	shape := dst.Shape()
	for i := range shape {
		if shape[i] <= 0 {
			return nil, fmt.Errorf("destination volume has shape %v", shape)
		}
	}

	rp, err := p.resolve(shape[0])
	if err != nil {
		return nil, err
	}
	sampler, err := volume.NewSampler(src, rp.Order, rp.Background)
	if err != nil {
		return nil, err
	}

	job := &Job{
		approx: a, dst: dst, sampler: sampler, shape: shape,
		p: rp, chunks: Split(shape[0], rp.ChunkLen),
	}
	job.states = make([]atomic.Int32, len(job.chunks))
	return job, nil
}

// Chunks returns the chunks the destination is split into.
func (job *Job) Chunks() []Chunk { return job.chunks }

// Params returns the parameters with defaults filled in.
func (job *Job) Params() Params { return job.p }

// States returns a snapshot of every chunk's state.
func (job *Job) States() []State {
	out := make([]State, len(job.states))
	for i := range job.states {
		out[i] = State(job.states[i].Load())
	}
	return out
}

// State summarizes the job: Failed if any chunk failed, Done if every chunk
// is done, Running while Run is executing and Pending otherwise.
func (job *Job) State() State {
	done := 0
	for _, s := range job.States() {
		switch s {
		case Failed:
			return Failed
		case Done:
			done++
		}
	}
	if done == len(job.states) {
		return Done
	} else if job.active.Load() {
		return Running
	}
	return Pending
}

// Run warps every chunk and blocks until all started chunks have finished.
// Once a chunk fails, no further chunks are started; chunks that already
// finished keep their output. The returned error joins a *ChunkFailure for
// every failed chunk. If ctx is cancelled without any failures, ctx.Err()
// is returned and unfinished chunks are left Pending.
func (job *Job) Run(ctx context.Context) error {
	if !job.active.CompareAndSwap(false, true) {
		return fmt.Errorf("job is already running")
	}
	defer job.active.Store(false)

	for i := range job.states {
		job.states[i].Store(int32(Pending))
	}

	if job.p.Log {
		log.Printf(
			"Warping volume of shape %v in %d chunks with %d workers.",
			job.shape, len(job.chunks), job.p.Workers,
		)
	}

	failures := []*ChunkFailure{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.p.Workers)

	for _, c := range job.chunks {
		c := c
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			job.states[c.Index].Store(int32(Running))

			err := job.runChunk(gctx, c)
			switch {
			case err == nil:
				job.states[c.Index].Store(int32(Done))
				if job.p.Log {
					log.Printf(
						"Finished chunk %d/%d (z = %d to %d).",
						c.Index+1, len(job.chunks), c.Offset, c.Offset+c.Len,
					)
				}
				return nil
			case gctx.Err() != nil && errors.Is(err, gctx.Err()):
				job.states[c.Index].Store(int32(Pending))
				return nil
			}

			job.states[c.Index].Store(int32(Failed))
			f := &ChunkFailure{Chunk: c, Err: err}
			job.mu.Lock()
			failures = append(failures, f)
			job.mu.Unlock()
			if job.p.Log {
				log.Printf("%s", f)
			}
			return f
		})
	}
	_ = g.Wait()

	if job.p.Log {
		gowarp.LogMemoryUsage()
	}
	return joinFailures(ctx, failures)
}

func joinFailures(ctx context.Context, failures []*ChunkFailure) error {
	if len(failures) == 0 {
		return ctx.Err()
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Chunk.Index < failures[j].Chunk.Index
	})
	errs := make([]error, len(failures))
	for i := range failures {
		errs[i] = failures[i]
	}
	return errors.Join(errs...)
}

// runChunk warps the destination slices [c.Offset, c.Offset + c.Len) and
// writes them out.
func (job *Job) runChunk(ctx context.Context, c Chunk) error {
	shape := volume.Shape{c.Len, job.shape[1], job.shape[2]}
	offset := volume.Shape{c.Offset, 0, 0}
	grid := volume.NewGrid(offset, shape)
	vals := make([]float64, grid.Volume)

	batch := job.p.BatchSize
	if batch > grid.Volume {
		batch = grid.Volume
	}
	pts, warped := newBuffers(batch, 3)

	for start := 0; start < grid.Volume; start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batch
		if end > grid.Volume {
			end = grid.Volume
		}

		n := end - start
		for i := 0; i < n; i++ {
			z, y, x := grid.Coords(start + i)
			pts[i][0], pts[i][1], pts[i][2] = float64(z), float64(y), float64(x)
		}
		job.approx.EvalAll(pts[:n], warped[:n])

		for i := 0; i < n; i++ {
			w := warped[i]
			vals[start+i] = job.sampler.At(w[0], w[1], w[2])
		}
	}

	return job.dst.WriteChunk(offset, shape, vals)
}

func newBuffers(n, dim int) (pts, out [][]float64) {
	buf := make([]float64, 2*n*dim)
	pts, out = make([][]float64, n), make([][]float64, n)
	for i := 0; i < n; i++ {
		pts[i] = buf[i*dim : (i+1)*dim]
		out[i] = buf[(n+i)*dim : (n+i+1)*dim]
	}
	return pts, out
}
