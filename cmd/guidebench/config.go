package main

import (
	"encoding/json"
	"log"
	"os"
)

// decodeConfig reads a JSON config file into out, mirroring the teacher's
// extra_boost_main/main.go decodeConfig: one flag gives the mode, a second
// points at a mode-specific JSON file decoded straight into a struct.
func decodeConfig(path string, out interface{}) {
	file, err := os.Open(path)
	fatalIfErr(err)
	defer func() { fatalIfErr(file.Close()) }()

	decoder := json.NewDecoder(file)
	fatalIfErr(decoder.Decode(out))
}

func fatalIfErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// BenchConfig drives the "bench" mode: it trains a Wrapper against a
// synthetic target distribution and records the training tree's node count
// every LearningCurveStep samples as a learning curve.
type BenchConfig struct {
	Dimension         int     `json:"dimension"`
	Samples           int     `json:"samples"`
	SplitThreshold    float64 `json:"splitThreshold"`
	UniformProb       float64 `json:"uniformProb"`
	LearningCurveStep int     `json:"learningCurveStep"`
	ModelFileName     string  `json:"filenameModel"`
	LearningCurveFile string  `json:"filenameLearningCurve"`
}

// RenderConfig drives the "render" mode: it loads a saved tree and produces
// a graphviz picture and, when HeatmapFileName is set, a 2D density heatmap
// .npy export.
type RenderConfig struct {
	Dimension       int    `json:"dimension"`
	ModelFileName   string `json:"filenameModel"`
	FigureType      string `json:"figureType"`
	PictureFileName string `json:"filenamePicture"`
	HeatmapFileName string `json:"filenameHeatmap"`
	Resolution      int    `json:"resolution"`
}
