// Package lidar loads LIDAR point sets for wetness analysis: LAS files on
// local storage and Entwine Point Tile metadata from the public USGS 3DEP
// bucket. Octree tile decoding is out of scope; callers hand decoded points
// to the twi package.
package lidar

import (
	"github.com/edaniels/golog"
	"github.com/edaniels/lidario"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/eandualem/go-twi"
)

// A Bounds is an axis-aligned bounding box in the point coordinate system.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Contains reports whether (x, y) falls within b.
func (b Bounds) Contains(x, y float64) bool {
	return b.MinX <= x && x <= b.MaxX && b.MinY <= y && y <= b.MaxY
}

// Intersects reports whether b and other overlap.
func (b Bounds) Intersects(other Bounds) bool {
	return b.MinX <= other.MaxX && other.MinX <= b.MaxX &&
		b.MinY <= other.MaxY && other.MinY <= b.MaxY
}

// A Dataset is a point set labelled with its source region and survey year.
type Dataset struct {
	Region string
	Year   int
	Points []twi.Point
}

// ComputeAll runs the wetness pipeline once per dataset and returns the
// results keyed by survey year. Datasets are processed independently; no
// state is shared between years.
func ComputeAll(datasets []Dataset, options ...twi.PipelineOption) (map[int]*twi.Result, error) {
	results := make(map[int]*twi.Result, len(datasets))
	for _, dataset := range datasets {
		result, err := twi.Compute(dataset.Points, options...)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %d", dataset.Region, dataset.Year)
		}
		results[dataset.Year] = result
	}
	return results, nil
}

// A ReadOption sets an option for ReadLAS.
type ReadOption func(*readOptions)

type readOptions struct {
	classifications map[uint8]struct{}
	bounds          *Bounds
}

// WithClassifications keeps only points with one of the given ASPRS
// classification values (2 is ground).
func WithClassifications(classifications ...uint8) ReadOption {
	return func(o *readOptions) {
		o.classifications = make(map[uint8]struct{}, len(classifications))
		for _, classification := range classifications {
			o.classifications[classification] = struct{}{}
		}
	}
}

// WithBounds keeps only points within bounds.
func WithBounds(bounds Bounds) ReadOption {
	return func(o *readOptions) {
		o.bounds = &bounds
	}
}

// ReadLAS reads the points of a LAS file.
func ReadLAS(filename string, logger golog.Logger, options ...ReadOption) (points []twi.Point, err error) {
	var o readOptions
	for _, option := range options {
		option(&o)
	}

	lf, err := lidario.NewLasFile(filename, "r")
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	skipped := 0
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "point %d of %s", i, filename)
		}
		data := p.PointData()
		if o.classifications != nil {
			// Classification value is the low five bits of the field.
			if _, ok := o.classifications[data.ClassBitField.Value&0x1f]; !ok {
				skipped++
				continue
			}
		}
		if o.bounds != nil && !o.bounds.Contains(data.X, data.Y) {
			skipped++
			continue
		}
		points = append(points, twi.Point{X: data.X, Y: data.Y, Z: data.Z})
	}

	logger.Debugw("loaded LAS points",
		"file", filename,
		"points", len(points),
		"skipped", skipped,
	)
	return points, nil
}
