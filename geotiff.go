package twi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"golang.org/x/image/tiff/lzw"
)

var errShortRead = errors.New("short read")

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal
// an IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// GridFromGeoTIFF reads a complete DEM from a tiled, LZW-compressed float32
// GeoTIFF into a Grid. The GDAL no data value becomes NaN. The whole file is
// read into memory.
func GridFromGeoTIFF(fsys fs.FS, filename string) (*Grid, error) {
	file, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	tiffTIFF, err := tiff.Parse(bytes.NewReader(data), tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}
	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("found %d IFDs, expected 1", len(tiffTIFF.IFDs()))
	}
	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	if ifd.BitsPerSample != 32 ||
		ifd.Compression != 5 ||
		ifd.PhotometricInterpretation != 1 ||
		ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration != 1 ||
		ifd.Predictor != 1 ||
		ifd.SampleFormat != 3 ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 {
		return nil, errors.ErrUnsupported
	}

	if len(ifd.ModelPixelScaleTag) != 3 || ifd.ModelPixelScaleTag[2] != 0 {
		return nil, errors.ErrUnsupported
	}
	scaleX, scaleY := ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1]
	if scaleX <= 0 || scaleX != scaleY {
		return nil, errors.ErrUnsupported
	}
	if len(ifd.ModelTiepointTag) != 6 ||
		ifd.ModelTiepointTag[0] != 0 || ifd.ModelTiepointTag[1] != 0 || ifd.ModelTiepointTag[2] != 0 ||
		ifd.ModelTiepointTag[5] != 0 {
		return nil, errors.ErrUnsupported
	}
	topLeftX, topLeftY := ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]

	noData := math.NaN()
	if s := strings.TrimSpace(ifd.GDALNoData); s != "" {
		noData, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid no data value %q", ifd.GDALNoData)
		}
	}

	rows, cols := int(ifd.ImageLength), int(ifd.ImageWidth)
	g := newGrid(rows, cols, scaleX, topLeftX, topLeftY-float64(rows)*scaleX)
	if parsedGeoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag)); err == nil {
		if srid, ok := parsedGeoKeys.SRID(); ok {
			g.srid = srid
		}
	}

	tileWidth, tileLength := int(ifd.TileWidth), int(ifd.TileLength)
	tilesAcross := (cols + tileWidth - 1) / tileWidth
	tilesDown := (rows + tileLength - 1) / tileLength
	if len(ifd.TileOffsets) != tilesAcross*tilesDown || len(ifd.TileByteCounts) != tilesAcross*tilesDown {
		return nil, errors.New("incorrect number of tile byte counts or offsets")
	}
	tileByteCountUncompressed := tileWidth * tileLength * 4

	for tileRow := range tilesDown {
		for tileCol := range tilesAcross {
			tileIndex := tileCol + tilesAcross*tileRow
			offset, count := ifd.TileOffsets[tileIndex], ifd.TileByteCounts[tileIndex]
			if offset+count > uint64(len(data)) {
				return nil, errShortRead
			}
			tileData, err := decompressTileData(data[offset:offset+count], tileByteCountUncompressed)
			if err != nil {
				return nil, err
			}
			for y := range tileLength {
				tiffRow := tileRow*tileLength + y
				if tiffRow >= rows {
					break
				}
				row := rows - 1 - tiffRow
				for x := range tileWidth {
					col := tileCol*tileWidth + x
					if col >= cols {
						break
					}
					b := binary.LittleEndian.Uint32(tileData[4*(y*tileWidth+x):])
					sample := float64(math.Float32frombits(b))
					if sample == noData {
						continue
					}
					g.values[g.index(row, col)] = sample
				}
			}
		}
	}

	return g, nil
}

// decompressTileData decompresses the tile data in compressedData.
func decompressTileData(compressedData []byte, uncompressedByteCount int) ([]byte, error) {
	tileData := make([]byte, uncompressedByteCount)
	r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	for bytesRead := 0; bytesRead < uncompressedByteCount; {
		n, err := r.Read(tileData[bytesRead:])
		if err != nil {
			return nil, err
		}
		bytesRead += n
	}
	return tileData, nil
}
