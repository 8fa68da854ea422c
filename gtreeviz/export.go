package gtreeviz

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ExportHeatmap writes a 2D density projection to a .npy file, the write
// side of the round trip the teacher's ebl.ReadNpy performs with
// npyio.NewReader (golang/extra_boost/ebl/ematrix.go) — here used to hand a
// density grid to numpy/matplotlib for inspection outside Go.
func ExportHeatmap(path string, heatmap *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "gtreeviz: create %s", path)
	}
	defer f.Close()

	if err := npyio.Write(f, heatmap); err != nil {
		return errors.Wrapf(err, "gtreeviz: write npy to %s", path)
	}
	return nil
}
