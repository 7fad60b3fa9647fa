package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"

	"github.com/eandualem/go-twi"
	"github.com/eandualem/go-twi/internal/config"
	"github.com/eandualem/go-twi/lidar"
)

func run() error {
	lasPath := flag.String("las", "", "path to a LAS point cloud")
	demPath := flag.String("dem", "", "path to a GeoTIFF DEM")
	cellSize := flag.Float64("cell-size", 0, "grid cell size (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *cellSize > 0 {
		cfg.CellSize = *cellSize
	}

	var logger golog.Logger
	if cfg.LogLevel == "debug" {
		logger = golog.NewDevelopmentLogger("twi-example")
	} else {
		logger = golog.NewLogger("twi-example")
	}

	pipelineOptions, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	pipeline := twi.NewPipeline(pipelineOptions...)

	var result *twi.Result
	switch {
	case *lasPath != "":
		points, err := lidar.ReadLAS(*lasPath, logger, cfg.ReadOptions()...)
		if err != nil {
			return err
		}
		result, err = pipeline.Compute(points)
		if err != nil {
			return err
		}
	case *demPath != "":
		grid, err := twi.GridFromGeoTIFF(os.DirFS(filepath.Dir(*demPath)), filepath.Base(*demPath))
		if err != nil {
			return err
		}
		result, err = pipeline.ComputeGrid(grid)
		if err != nil {
			return err
		}
	default:
		return errors.New("syntax: twi-example -las points.las | -dem surface.tif")
	}

	summary := result.Summary
	fmt.Printf("grid: %dx%d cells of %g\n", result.Elevation.Rows(), result.Elevation.Cols(), result.Elevation.CellSize())
	fmt.Printf("cells: %d valid, %d no data, %d pits\n", summary.ValidCells, summary.NoDataCells, summary.Pits)
	fmt.Printf("wetness: min %g, max %g, mean %g\n", summary.MinWetness, summary.MaxWetness, summary.MeanWetness)
	if len(result.Points) > 0 {
		fmt.Printf("points: %d sampled, %d no data\n", summary.SampledPoints, summary.NoDataPoints)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
