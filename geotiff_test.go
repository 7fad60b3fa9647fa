package twi_test

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/eandualem/go-twi"
)

func TestGridFromGeoTIFF(t *testing.T) {
	if _, err := os.Stat("testdata/dem"); errors.Is(err, fs.ErrNotExist) {
		t.Skip("missing dem test data")
	}

	g, err := twi.GridFromGeoTIFF(os.DirFS("testdata/dem"), "surface.tif")
	assert.NoError(t, err)
	assert.True(t, g.Rows() > 0)
	assert.True(t, g.Cols() > 0)
	assert.True(t, g.CellSize() > 0)

	pipeline := twi.NewPipeline()
	result, err := pipeline.ComputeGrid(g)
	assert.NoError(t, err)
	assert.Equal(t, g.Rows(), result.Wetness.Rows())
	assert.Equal(t, g.Cols(), result.Wetness.Cols())
	assert.Equal(t, g.Rows()*g.Cols(), result.Summary.ValidCells+result.Summary.NoDataCells)
}

func TestGridFromGeoTIFF_Missing(t *testing.T) {
	_, err := twi.GridFromGeoTIFF(os.DirFS("testdata"), "no-such-file.tif")
	assert.IsError(t, err, fs.ErrNotExist)
}
