package chunk

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/gowarp"
	"github.com/phil-mansfield/gowarp/rbf"
)

// WarpPoints warps every point in pts with w, splitting the list into chunks
// evaluated concurrently. Any Warper may be used. Points the warp cannot
// map (e.g. outside an Approximation's lattice) come back as NaN.
//
// Only p's Workers, ChunkLen, BatchSize and Log fields are used. p may be nil.
func WarpPoints(
	ctx context.Context, w gowarp.Warper, pts [][]float64, p *Params,
) ([][]float64, error) {
	if p == nil {
		p = DefaultParams()
	}
	if err := rbf.CheckPoints("point", pts, w.InputDim()); err != nil {
		return nil, err
	}
	rp, err := p.resolve(len(pts))
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(pts))
	buf := make([]float64, len(pts)*w.OutputDim())
	for i := range out {
		out[i] = buf[i*w.OutputDim() : (i+1)*w.OutputDim()]
	}
	if len(pts) == 0 {
		return out, nil
	}

	chunks := Split(len(pts), rp.ChunkLen)
	if rp.Log {
		log.Printf(
			"Warping %d points in %d chunks with %d workers.",
			len(pts), len(chunks), rp.Workers,
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rp.Workers)
	for _, c := range chunks {
		c := c
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for start := c.Offset; start < c.Offset+c.Len; start += rp.BatchSize {
				if err := gctx.Err(); err != nil {
					return err
				}
				end := start + rp.BatchSize
				if end > c.Offset+c.Len {
					end = c.Offset + c.Len
				}
				w.EvalAll(pts[start:end], out[start:end])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rp.Log {
		gowarp.LogMemoryUsage()
	}
	return out, nil
}
