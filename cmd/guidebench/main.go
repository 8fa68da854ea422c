// Command guidebench trains an adaptive-guiding-tree Wrapper against a
// synthetic target distribution and renders the result, adapted from the
// teacher's extra_boost_main/main.go flag+JSON-config CLI.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/adaptive-guiding-tree/gtree"
	"github.com/tarstars/adaptive-guiding-tree/gtreeviz"
)

// benchSample is the external "renderer sample" type extracted by a
// WrapperTarget into a deposit position and value (spec.md §1's Monte-Carlo
// renderer sample, out of scope for the core itself).
type benchSample struct {
	position gtree.Vector
	value    float64
}

func extractBenchSample(s benchSample) (gtree.Vector, gtree.Float64) {
	return s.position, gtree.Float64(s.value)
}

func benchTarget(v gtree.Float64) float64 {
	return math.Abs(float64(v))
}

// hotspots are the centers of a fixed mixture of Gaussian bumps used as the
// synthetic ground-truth distribution for bench mode.
var hotspots = []gtree.Vector{
	{0.2, 0.2},
	{0.8, 0.7},
	{0.5, 0.5},
}

const hotspotWidth = 0.05

func hotspotDensity(x gtree.Vector) float64 {
	var sum float64
	for _, center := range hotspots {
		var sqDist float64
		for d := range x {
			c := 0.5
			if d < len(center) {
				c = center[d]
			}
			diff := x[d] - c
			sqDist += diff * diff
		}
		sum += math.Exp(-sqDist / (2 * hotspotWidth * hotspotWidth))
	}
	return sum
}

func bench(configPath string) {
	var cfg BenchConfig
	decodeConfig(configPath, &cfg)

	settings := gtree.DefaultWrapperSettings()
	settings.UniformProb = cfg.UniformProb
	settings.Child.SplitThreshold = cfg.SplitThreshold

	wrapper := gtree.NewWrapper[benchSample, gtree.Float64](cfg.Dimension, extractBenchSample, benchTarget, settings)
	rng := rand.New(rand.NewSource(1))

	rows := 0
	if cfg.LearningCurveStep > 0 {
		rows = cfg.Samples/cfg.LearningCurveStep + 1
	}
	curve := mat.NewDense(maxInt(rows, 1), 1, nil)
	row := 0

	x := make(gtree.Vector, cfg.Dimension)
	for i := 0; i < cfg.Samples; i++ {
		for d := range x {
			x[d] = rng.Float64()
		}
		density := hotspotDensity(x)

		wrapper.Splat(benchSample{position: x.Clone(), value: density}, 1)

		if cfg.LearningCurveStep > 0 && (i+1)%cfg.LearningCurveStep == 0 && row < rows {
			curve.Set(row, 0, float64(wrapper.Training().NodeCount()))
			row++
		}
	}

	if cfg.LearningCurveFile != "" {
		dst, err := os.Create(cfg.LearningCurveFile)
		fatalIfErr(err)
		defer func() { fatalIfErr(dst.Close()) }()
		fatalIfErr(npyio.Write(dst, curve))
	}

	if cfg.ModelFileName != "" {
		dst, err := os.Create(cfg.ModelFileName)
		fatalIfErr(err)
		defer func() { fatalIfErr(dst.Close()) }()
		_, err = wrapper.Sampling().WriteWithTag(dst)
		fatalIfErr(err)
	}

	log.Printf("bench: %d samples, %d nodes in sampling tree", wrapper.SamplesSoFar(), wrapper.Sampling().NodeCount())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func render(configPath string) {
	var cfg RenderConfig
	decodeConfig(configPath, &cfg)

	src, err := os.Open(cfg.ModelFileName)
	fatalIfErr(err)
	defer func() { fatalIfErr(src.Close()) }()

	tr := gtree.NewTree[gtree.Float64](cfg.Dimension, benchTarget, gtree.DefaultSettings())
	_, err = tr.ReadWithTag(src)
	fatalIfErr(err)

	gv, graph, err := gtreeviz.DrawTree[gtree.Float64](tr)
	fatalIfErr(err)

	format, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[cfg.FigureType]
	if !ok {
		log.Fatalf("guidebench: unsupported figure type %q", cfg.FigureType)
	}
	fatalIfErr(gv.RenderFilename(graph, format, cfg.PictureFileName))

	if cfg.HeatmapFileName != "" {
		heatmap, err := gtreeviz.Project2D[gtree.Float64](tr, cfg.Resolution)
		fatalIfErr(err)
		fatalIfErr(gtreeviz.ExportHeatmap(cfg.HeatmapFileName, heatmap))
	}
}

func main() {
	runMode := flag.String("mode", "bench", "you can select either 'bench' or 'render' mode")
	config := flag.String("config", "guidebench.json", "a config file for the run of the program")
	flag.Parse()

	mode, ok := map[string]func(string){
		"bench":  bench,
		"render": render,
	}[*runMode]
	if !ok {
		log.Fatalf("guidebench: unknown mode %q", *runMode)
	}
	mode(*config)
}
