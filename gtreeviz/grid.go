// Package gtreeviz turns a gtree.Tree's learned density into the shapes the
// rest of the corpus already knows how to move around: a gorgonia tensor, a
// gonum matrix, an .npy file, or a graphviz picture.
package gtreeviz

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/tarstars/adaptive-guiding-tree/gtree"
)

// DensityGrid rasterizes a tree's learned density onto a uniform
// resolution^D grid, stored as a gorgonia.org/tensor.Dense, grounded on the
// teacher's EMatrix.allocateArrays (golang/extra_boost/ebl/find_the_best_split.go):
// tensor.New(tensor.WithShape(...), tensor.Of(tensor.Float64)) followed by
// per-cell SetAt calls.
func DensityGrid[V gtree.Accumulator[V]](tree *gtree.Tree[V], resolution int) (*tensor.Dense, error) {
	dimension := tree.Dimension()
	shape := make([]int, dimension)
	for d := range shape {
		shape[d] = resolution
	}

	grid := tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Float64))

	coords := make([]int, dimension)
	x := make(gtree.Vector, dimension)

	var walkCoord func(d int) error
	walkCoord = func(d int) error {
		if d == dimension {
			density := tree.PDF(x)
			if err := grid.SetAt(density, coords...); err != nil {
				return errors.Wrapf(err, "gtreeviz: set grid cell %v", coords)
			}
			return nil
		}
		for i := 0; i < resolution; i++ {
			coords[d] = i
			x[d] = (float64(i) + 0.5) / float64(resolution)
			if err := walkCoord(d + 1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walkCoord(0); err != nil {
		return nil, err
	}

	return grid, nil
}

// Project2D produces a resolution x resolution gonum mat.Dense heatmap by
// averaging tree's density over every dimension beyond the first two, for
// on-screen visualization of trees with more than two dimensions. The
// teacher moves data between exactly these two representations depending on
// which downstream operation needs it: ematrix.go's ReadNpy decodes into a
// mat.Dense, while find_the_best_split.go works the raw data as a
// tensor.Dense.
func Project2D[V gtree.Accumulator[V]](tree *gtree.Tree[V], resolution int) (*mat.Dense, error) {
	dimension := tree.Dimension()
	if dimension < 2 {
		return nil, errors.Errorf("gtreeviz: Project2D requires dimension >= 2, got %d", dimension)
	}

	heatmap := mat.NewDense(resolution, resolution, nil)
	x := make(gtree.Vector, dimension)

	samplesPerExtraDim := 1
	if dimension > 2 {
		samplesPerExtraDim = resolution
	}

	for row := 0; row < resolution; row++ {
		x[1] = (float64(row) + 0.5) / float64(resolution)
		for col := 0; col < resolution; col++ {
			x[0] = (float64(col) + 0.5) / float64(resolution)

			var sum float64
			var count int

			var walkExtra func(d int)
			walkExtra = func(d int) {
				if d == dimension {
					sum += tree.PDF(x)
					count++
					return
				}
				for i := 0; i < samplesPerExtraDim; i++ {
					x[d] = (float64(i) + 0.5) / float64(samplesPerExtraDim)
					walkExtra(d + 1)
				}
			}
			walkExtra(2)

			heatmap.Set(row, col, sum/float64(count))
		}
	}

	return heatmap, nil
}
