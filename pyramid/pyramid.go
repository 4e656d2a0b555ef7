// Package pyramid derives coarser resolution directories from a base directory whose
// chunks embed a multi-resolution codestream.  Only geometry changes: each level halves
// the tile size and rescales the image so partial edge tiles survive at every level.
package pyramid

import (
	"math"

	"github.com/janelia-flyem/planeio/ifd"
	"github.com/janelia-flyem/planeio/planeio"
)

// Scaling is a pyramid level where 0 is the base directory and each level halves the
// resolution of the previous one.
type Scaling uint8

// Factor returns the downsampling factor 2^level.
func (level Scaling) Factor() int64 {
	return 1 << level
}

// Axis is the geometry of one image axis.
type Axis struct {
	Image int64
	Tile  int64
}

// round matches rounding half away from zero for the non-negative values used here.
func round(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// Scale returns the axis geometry at the given level.  Whole tiles keep their count at the
// rounded smaller tile size.  The leftover partial tile is divided by the factor and rounded
// up when below one pixel, so any nonzero remainder keeps at least one pixel.
func (a Axis) Scale(level Scaling) Axis {
	factor := level.Factor()
	newTile := max(1, round(float64(a.Tile)/float64(factor)))
	even := a.Image / a.Tile
	remainder := float64(a.Image-even*a.Tile) / float64(factor)
	if remainder < 1 {
		remainder = math.Ceil(remainder)
	} else {
		remainder = float64(round(remainder))
	}
	return Axis{Image: even*newTile + int64(remainder), Tile: newTile}
}

// ResolutionIndex returns the codec resolution index of a level when the codestream holds
// the given # of levels.  The base directory has index levels.
func ResolutionIndex(level Scaling, levels int) int {
	d := int(level) - levels
	if d < 0 {
		return -d
	}
	return d
}

// Synthesize returns one directory per level 1..levels, each a copy of base with new image
// and tile geometry.
func Synthesize(base *ifd.Directory, levels int) ([]*ifd.Directory, error) {
	if levels < 0 || levels > 32 {
		return nil, planeio.NewError("synthesize pyramid", planeio.ErrMalformed, "%d resolution levels", levels)
	}
	width, err := base.ImageWidth()
	if err != nil {
		return nil, err
	}
	length, err := base.ImageLength()
	if err != nil {
		return nil, err
	}
	tileWidth, err := base.TileWidth()
	if err != nil {
		return nil, err
	}
	tileLength, err := base.TileLength()
	if err != nil {
		return nil, err
	}
	tiled, err := base.Tiled()
	if err != nil {
		return nil, err
	}
	x := Axis{Image: int64(width), Tile: int64(tileWidth)}
	y := Axis{Image: int64(length), Tile: int64(tileLength)}

	dirs := make([]*ifd.Directory, 0, levels)
	for level := Scaling(1); int(level) <= levels; level++ {
		d, err := base.Copy()
		if err != nil {
			return nil, err
		}
		sx, sy := x.Scale(level), y.Scale(level)
		values := map[ifd.Tag]ifd.Value{
			ifd.ImageWidth:  ifd.NewInts(sx.Image),
			ifd.ImageLength: ifd.NewInts(sy.Image),
			ifd.TileWidth:   ifd.NewInts(sx.Tile),
			ifd.TileLength:  ifd.NewInts(sy.Tile),
		}
		if !tiled {
			// Strips become the tiles of the synthesized directory.
			offsets, err := base.StripOffsets()
			if err != nil {
				return nil, err
			}
			counts, err := base.StripByteCounts()
			if err != nil {
				return nil, err
			}
			values[ifd.TileOffsets] = ifd.NewInts(offsets...)
			values[ifd.TileByteCounts] = ifd.NewInts(counts...)
		}
		for tag, v := range values {
			if err := d.Put(tag, v); err != nil {
				return nil, err
			}
		}
		planeio.Debugf("Added sub-resolution directory level %d (index %d): %d x %d, tile %d x %d\n",
			level, ResolutionIndex(level, levels), sx.Image, sy.Image, sx.Tile, sy.Tile)
		dirs = append(dirs, d)
	}
	return dirs, nil
}

// Records returns the metadata of each synthesized level: a copy of the base record with
// the level's plane size, flagged as a thumbnail.
func Records(base planeio.CoreMetadata, dirs []*ifd.Directory) ([]planeio.CoreMetadata, error) {
	records := make([]planeio.CoreMetadata, len(dirs))
	for i, d := range dirs {
		width, err := d.ImageWidth()
		if err != nil {
			return nil, err
		}
		length, err := d.ImageLength()
		if err != nil {
			return nil, err
		}
		m := base
		m.SizeX = width
		m.SizeY = length
		m.Thumbnail = true
		records[i] = m
	}
	return records, nil
}
