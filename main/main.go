package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/phil-mansfield/gowarp"
	"github.com/phil-mansfield/gowarp/chunk"
	"github.com/phil-mansfield/gowarp/interpolate"
	"github.com/phil-mansfield/gowarp/io"
	"github.com/phil-mansfield/gowarp/volume"
)

type FileGroup struct {
	log, prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var (
		warpVolume, warpPoints string
		exampleConfig          string
		threads                int
	)
	vars := map[string]*string{
		"WarpVolume":    &warpVolume,
		"WarpPoints":    &warpPoints,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(
		&warpVolume, "WarpVolume", "",
		"Configuration file for [WarpVolume] mode.",
	)
	flag.StringVar(
		&warpPoints, "WarpPoints", "",
		"Configuration file for [WarpPoints] mode.",
	)
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the "+
			"specified type to stdout. Accepted arguments are 'WarpVolume' "+
			"and 'WarpPoints'.",
	)
	flag.IntVar(
		&threads, "Threads", runtime.NumCPU(),
		"Number of workers used when a configuration file does not set "+
			"'Workers'.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}
	if threads <= 0 {
		log.Fatalf("'Threads' must be positive, got %d.", threads)
	}

	switch modeName {
	case "WarpVolume":
		wrap, err := io.ReadWarpVolumeConfig(warpVolume)
		if err != nil {
			log.Fatal(err.Error())
		}
		if wrap.Warp.Workers == 0 {
			wrap.Warp.Workers = threads
		}
		warpVolumeMain(&wrap.Warp, &wrap.Volume)

	case "WarpPoints":
		wrap, err := io.ReadWarpPointsConfig(warpPoints)
		if err != nil {
			log.Fatal(err.Error())
		}
		if wrap.Warp.Workers == 0 {
			wrap.Warp.Workers = threads
		}
		warpPointsMain(&wrap.Warp, &wrap.Points)

	case "ExampleConfig":
		switch exampleConfig {
		case "WarpVolume":
			fmt.Println(io.ExampleWarpVolumeFile)
		case "WarpPoints":
			fmt.Println(io.ExampleWarpPointsFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. Only recognized " +
					"arguments are 'WarpVolume' and 'WarpPoints'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but gowarp only accepts "+
				"one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func setupFiles(con *io.WarpConfig) *FileGroup {
	fg := &FileGroup{}
	var err error

	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}

// fitWarp reads the alignment file and fits the exact warp in the
// configured direction.
func fitWarp(con *io.WarpConfig) *gowarp.Exact {
	a, err := io.ReadAlignmentKeys(con.Alignment, con.ReferenceKey, con.MovingKey)
	if err != nil {
		log.Fatal(err.Error())
	}
	p, err := con.RBFParams()
	if err != nil {
		log.Fatal(err.Error())
	}

	src, dest := a.PairsFor(con.DirectionValue())
	if con.Log {
		log.Printf(
			"Fitting %s warp to %d landmarks with the %s kernel.",
			con.DirectionValue(), len(src), p.Kernel,
		)
	}
	e, err := gowarp.FitTransform(src, dest, p)
	if err != nil {
		log.Fatal(err.Error())
	}
	return e
}

func warpVolumeMain(con *io.WarpConfig, vcon *io.VolumeConfig) {
	fg := setupFiles(con)
	defer fg.Close()

	if con.Log {
		log.Println("Running WarpVolume main.")
	}

	e := fitWarp(con)

	src, err := io.ReadRawVolume(vcon.Input)
	if err != nil {
		log.Fatal(err.Error())
	}

	shape := src.Shape()
	if vcon.Shape != "" {
		shape, err = vcon.ShapeValue()
		if err != nil {
			log.Fatal(err.Error())
		}
	}
	vt := io.Float32Volume
	if src.Kind() == volume.Labels {
		vt = io.Uint32Volume
	}
	if vcon.Type != "" {
		vt, err = io.ParseVolumeType(vcon.Type)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	cp, err := con.ChunkParams()
	if err != nil {
		log.Fatal(err.Error())
	}
	if src.Kind() == volume.Labels && cp.Order != interpolate.Nearest {
		if con.Log {
			log.Printf(
				"%s is a label volume, sampling with Nearest instead of %s.",
				vcon.Input, cp.Order,
			)
		}
		cp.Order = interpolate.Nearest
	}

	axes := make([][]float64, 3)
	for i := range axes {
		axes[i] = gowarp.Axis(0, float64(shape[i]-1), con.GridSpacing)
	}
	a, err := gowarp.Approximate(e, axes, &gowarp.ApproxParams{
		Order: interpolate.Linear, Workers: con.Workers, Log: con.Log,
	})
	if err != nil {
		log.Fatal(err.Error())
	}

	dst, err := io.CreateRawVolume(vcon.Output, shape, vt)
	if err != nil {
		log.Fatal(err.Error())
	}

	job, err := chunk.NewJob(a, src, dst, cp)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := job.Run(context.Background()); err != nil {
		dst.Close()
		log.Fatal(err.Error())
	}
	if err := dst.Close(); err != nil {
		log.Fatal(err.Error())
	}

	if con.Log {
		log.Printf("Wrote %s volume of shape %v to %s.", vt, shape, vcon.Output)
		gowarp.LogMemoryUsage()
	}
}

func warpPointsMain(con *io.WarpConfig, pcon *io.PointsConfig) {
	fg := setupFiles(con)
	defer fg.Close()

	if con.Log {
		log.Println("Running WarpPoints main.")
	}

	var (
		pts [][]float64
		err error
	)
	if io.IsJSON(pcon.Input) {
		pts, err = io.ReadPoints(pcon.Input)
	} else {
		cols, _ := pcon.ColumnsValue()
		pts, err = io.ReadPointTable(pcon.Input, cols)
	}
	if err != nil {
		log.Fatal(err.Error())
	}

	e := fitWarp(con)

	var w gowarp.Warper = e
	if con.ValidGridSpacing() && len(pts) > 0 {
		lo, hi := boundingBox(pts, e.InputDim())
		axes := make([][]float64, len(lo))
		for i := range axes {
			axes[i] = gowarp.Axis(lo[i], hi[i], con.GridSpacing)
		}
		order, err := interpolate.ParseOrder(con.Order)
		if err != nil {
			log.Fatal(err.Error())
		}
		w, err = gowarp.Select(e, axes, len(pts), &gowarp.ApproxParams{
			Order: order, Workers: con.Workers, Log: con.Log,
		})
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	cp, err := con.ChunkParams()
	if err != nil {
		log.Fatal(err.Error())
	}
	out, err := chunk.WarpPoints(context.Background(), w, pts, cp)
	if err != nil {
		log.Fatal(err.Error())
	}

	if io.IsJSON(pcon.Output) {
		err = io.WritePoints(pcon.Output, out)
	} else {
		err = io.WritePointTable(pcon.Output, out)
	}
	if err != nil {
		log.Fatal(err.Error())
	}

	if con.Log {
		log.Printf("Wrote %d warped points to %s.", len(out), pcon.Output)
	}
}

// boundingBox returns the per-axis extent of pts, skipping points that are
// undefined or have the wrong dimension.
func boundingBox(pts [][]float64, dim int) (lo, hi []float64) {
	lo, hi = make([]float64, dim), make([]float64, dim)
	for j := range lo {
		lo[j], hi[j] = math.Inf(+1), math.Inf(-1)
	}
	for _, p := range pts {
		if len(p) != dim || !gowarp.Valid(p) {
			continue
		}
		for j := range p {
			lo[j], hi[j] = math.Min(lo[j], p[j]), math.Max(hi[j], p[j])
		}
	}
	for j := range lo {
		if lo[j] > hi[j] {
			lo[j], hi[j] = 0, 0
		}
	}
	return lo, hi
}
