/*package chunk applies warps to whole volumes and long point lists by splitting
them into chunks that are processed on a fixed pool of goroutines.

Every chunk writes to a disjoint part of the output, so chunks never share
mutable state. The warp and the source volume are only read.
*/
package chunk

import (
	"fmt"
	"runtime"

	"github.com/phil-mansfield/gowarp/interpolate"
)

// DefaultBatchSize is the number of points passed to a single EvalAll call.
const DefaultBatchSize = 10000

// State is the progress of a single chunk or of a whole job.
type State int32

const (
	Pending State = iota
	Running
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Chunk is a contiguous range [Offset, Offset + Len) along the first axis of
// a volume, or of a point list.
type Chunk struct {
	Index, Offset, Len int
}

// ChunkFailure reports the error that stopped a single chunk. The chunk's
// part of the output was not written.
type ChunkFailure struct {
	Chunk Chunk
	Err   error
}

func (f *ChunkFailure) Error() string {
	return fmt.Sprintf(
		"chunk %d (offset %d, length %d) failed: %v",
		f.Chunk.Index, f.Chunk.Offset, f.Chunk.Len, f.Err,
	)
}

func (f *ChunkFailure) Unwrap() error { return f.Err }

// Params configures a Job or a call to WarpPoints. Zero values are replaced
// by defaults.
type Params struct {
	// Workers is the size of the goroutine pool. Defaults to
	// runtime.NumCPU().
	Workers int
	// ChunkLen is the number of slices (or points) per chunk. Defaults to
	// an even split across Workers.
	ChunkLen int
	// BatchSize is the number of points warped per EvalAll call. Defaults
	// to DefaultBatchSize.
	BatchSize int

	// Order is the interpolation order used to sample source volumes. Label
	// volumes require interpolate.Nearest.
	Order interpolate.Order
	// Background is written wherever the warped coordinate is undefined or
	// falls outside the source volume.
	Background float64

	Log bool
}

// DefaultParams returns nearest-neighbour sampling with a zero background.
func DefaultParams() *Params {
	return &Params{Order: interpolate.Nearest}
}

// resolve returns a copy of p with defaults filled in for n items along the
// chunked axis.
func (p *Params) resolve(n int) (Params, error) {
	out := *p
	if out.Workers < 0 {
		return out, fmt.Errorf("worker count must be non-negative, got %d", out.Workers)
	} else if out.ChunkLen < 0 {
		return out, fmt.Errorf("chunk length must be non-negative, got %d", out.ChunkLen)
	} else if out.BatchSize < 0 {
		return out, fmt.Errorf("batch size must be non-negative, got %d", out.BatchSize)
	}

	if out.Workers == 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.ChunkLen == 0 {
		out.ChunkLen = (n + out.Workers - 1) / out.Workers
		if out.ChunkLen == 0 {
			out.ChunkLen = 1
		}
	}
	if out.BatchSize == 0 {
		out.BatchSize = DefaultBatchSize
	}
	return out, nil
}

// Split divides n items into chunks of at most chunkLen items.
func Split(n, chunkLen int) []Chunk {
	if chunkLen <= 0 {
		panic(fmt.Sprintf("Chunk length must be positive, got %d.", chunkLen))
	}
	chunks := make([]Chunk, 0, (n+chunkLen-1)/chunkLen)
	for off := 0; off < n; off += chunkLen {
		c := Chunk{Index: len(chunks), Offset: off, Len: chunkLen}
		if off+chunkLen > n {
			c.Len = n - off
		}
		chunks = append(chunks, c)
	}
	return chunks
}
