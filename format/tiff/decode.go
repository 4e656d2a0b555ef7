package tiff

import (
	"github.com/janelia-flyem/planeio/codec"
	"github.com/janelia-flyem/planeio/ifd"
	"github.com/janelia-flyem/planeio/planeio"
	"github.com/janelia-flyem/planeio/pyramid"
)

// layout is the storage geometry of one directory.
type layout struct {
	width, length       int
	chunkWidth          int
	chunkLength         int
	across, down        int
	samples             int
	planar              bool
	tiled               bool
	diskBytes           int // bytes per sample on disk
	offsets, byteCounts []int64
	compression         int
	predictor           int
	bitsPerSample       int
	littleEndian        bool
	resolution          int
}

func newLayout(d *ifd.Directory) (*layout, error) {
	var l layout
	var err error
	if l.width, err = d.ImageWidth(); err != nil {
		return nil, err
	}
	if l.length, err = d.ImageLength(); err != nil {
		return nil, err
	}
	if l.chunkWidth, err = d.TileWidth(); err != nil {
		return nil, err
	}
	if l.chunkLength, err = d.TileLength(); err != nil {
		return nil, err
	}
	if l.tiled, err = d.Tiled(); err != nil {
		return nil, err
	}
	if l.samples, err = d.SamplesPerPixel(); err != nil {
		return nil, err
	}
	pc, err := d.PlanarConfig()
	if err != nil {
		return nil, err
	}
	l.planar = pc == ifd.PlanarPlanar && l.samples > 1
	bps, err := d.BitsPerSample()
	if err != nil {
		return nil, err
	}
	for _, b := range bps {
		if b != bps[0] || b%8 != 0 {
			return nil, planeio.NewError("decode plane", planeio.ErrUnsupportedCodec, "bits per sample %v", bps)
		}
	}
	l.bitsPerSample = bps[0]
	l.diskBytes = bps[0] / 8
	if l.compression, err = d.Compression(); err != nil {
		return nil, err
	}
	if l.predictor, err = d.Predictor(); err != nil {
		return nil, err
	}
	if l.offsets, err = d.Offsets(); err != nil {
		return nil, err
	}
	if l.byteCounts, err = d.ByteCounts(); err != nil {
		return nil, err
	}
	l.across = (l.width + l.chunkWidth - 1) / l.chunkWidth
	l.down = (l.length + l.chunkLength - 1) / l.chunkLength
	want := l.across * l.down
	if l.planar {
		want *= l.samples
	}
	if len(l.offsets) < want || len(l.byteCounts) < want {
		return nil, planeio.NewError("decode plane", planeio.ErrMalformed,
			"%s has %d offsets and %d byte counts, need %d", d, len(l.offsets), len(l.byteCounts), want)
	}
	l.littleEndian = d.LittleEndian()
	return &l, nil
}

// chunkSamples returns the # of samples interleaved in each pixel of a chunk.
func (l *layout) chunkSamples() int {
	if l.planar {
		return 1
	}
	return l.samples
}

// chunkRows returns the # of rows stored in chunk row ty.  Tiles are always full; the last
// strip may be short.
func (l *layout) chunkRows(ty int) int {
	if l.tiled {
		return l.chunkLength
	}
	return min(l.chunkLength, l.length-ty*l.chunkLength)
}

// DecodePlane fills buf with the r window of plane no of the given series, channel after
// channel.  16 and 24 bit floating point samples are widened to 32 bits.
func (sess *Session) DecodePlane(series, no int, r planeio.Rect, buf []byte) error {
	if sess.s == nil {
		return planeio.NewError("decode plane", planeio.ErrUninitialized, "session closed")
	}
	if series < 0 || series >= len(sess.core) {
		return planeio.NewError("decode plane", planeio.ErrOutOfRange, "series %d not in [0,%d)", series, len(sess.core))
	}
	m := sess.core[series]
	if err := planeio.CheckPlaneParameters(m, no, len(buf), r); err != nil {
		return err
	}
	d, err := sess.Directory(series, no)
	if err != nil {
		return err
	}
	l, err := newLayout(d)
	if err != nil {
		return err
	}
	if sess.levels[no] > 0 {
		l.resolution = pyramid.ResolutionIndex(pyramid.Scaling(series), sess.levels[no])
	}
	if l.samples < m.RGBChannelCount() {
		return planeio.NewError("decode plane", planeio.ErrMalformed, "%s has %d samples, series has %d channels", d, l.samples, m.RGBChannelCount())
	}

	narrow := m.PixelType == planeio.Float && (l.bitsPerSample == 16 || l.bitsPerSample == 24)
	out := buf
	if narrow {
		out = make([]byte, r.W*r.H*m.RGBChannelCount()*l.diskBytes)
	} else if l.diskBytes != m.PixelType.BytesPerPixel() {
		return planeio.NewError("decode plane", planeio.ErrMalformed, "%d byte samples for %s pixels", l.diskBytes, m.PixelType)
	}
	if err := sess.readWindow(l, m.RGBChannelCount(), r, out); err != nil {
		return err
	}
	if narrow {
		widenFloats(buf, out, l.diskBytes, l.littleEndian)
	}
	return nil
}

// readWindow decodes every chunk intersecting r and copies its part of the window into
// out, which holds channels*r.W*r.H samples of l.diskBytes each.
func (sess *Session) readWindow(l *layout, channels int, r planeio.Rect, out []byte) error {
	bps := l.diskBytes
	outRow := r.W * bps
	outChannel := outRow * r.H
	perPixel := l.chunkSamples()
	chunkRow := l.chunkWidth * perPixel * bps

	planes := 1
	if l.planar {
		planes = channels
	}
	for p := 0; p < planes; p++ {
		for ty := r.Y / l.chunkLength; ty < l.down && ty*l.chunkLength < r.Y+r.H; ty++ {
			for tx := r.X / l.chunkWidth; tx < l.across && tx*l.chunkWidth < r.X+r.W; tx++ {
				rows := l.chunkRows(ty)
				area := planeio.Rect{X: tx * l.chunkWidth, Y: ty * l.chunkLength, W: l.chunkWidth, H: rows}
				inter, ok := area.Intersect(r)
				if !ok {
					continue
				}
				index := p*l.across*l.down + ty*l.across + tx
				chunk, err := sess.decodeChunk(l, index, chunkRow*rows)
				if err != nil {
					return err
				}
				for y := inter.Y; y < inter.Y+inter.H; y++ {
					src := chunk[(y-area.Y)*chunkRow:]
					if perPixel == 1 {
						// One sample per pixel: the window part of the row is contiguous.
						start := (inter.X - area.X) * bps
						dst := out[p*outChannel+(y-r.Y)*outRow+(inter.X-r.X)*bps:]
						copy(dst[:inter.W*bps], src[start:start+inter.W*bps])
						continue
					}
					for x := inter.X; x < inter.X+inter.W; x++ {
						pixel := src[(x-area.X)*perPixel*bps:]
						for c := 0; c < channels; c++ {
							dst := out[c*outChannel+(y-r.Y)*outRow+(x-r.X)*bps:]
							copy(dst[:bps], pixel[c*bps:(c+1)*bps])
						}
					}
				}
			}
		}
	}
	return nil
}

// decodeChunk reads and decompresses one strip or tile, returning at least expected bytes.
func (sess *Session) decodeChunk(l *layout, index, expected int) ([]byte, error) {
	offset, count := l.offsets[index], l.byteCounts[index]
	if offset < 0 || count < 0 || offset > sess.s.Length() || count > sess.s.Length()-offset {
		return nil, planeio.NewError("decode chunk", planeio.ErrMalformed,
			"chunk %d at %d with %d bytes outside %d byte container", index, offset, count, sess.s.Length())
	}
	c, err := codec.ForCompression(l.compression)
	if err != nil {
		return nil, err
	}
	if err := sess.s.Seek(offset); err != nil {
		return nil, err
	}
	raw, err := sess.s.ReadFull(int(count))
	if err != nil {
		return nil, err
	}
	opts := codec.Options{
		Width:         l.chunkWidth,
		Height:        expected / max(l.chunkWidth*l.chunkSamples()*l.diskBytes, 1),
		Channels:      l.chunkSamples(),
		BitsPerSample: l.bitsPerSample,
		LittleEndian:  l.littleEndian,
		Interleaved:   !l.planar,
		MaxBytes:      expected,
		Resolution:    l.resolution,
	}
	data, err := c.Decompress(planeio.NewBytesStream(sess.s.Name(), raw), opts)
	if err != nil {
		return nil, err
	}
	if len(data) < expected {
		return nil, planeio.NewError("decode chunk", planeio.ErrMalformed,
			"%s chunk %d decoded to %d bytes, expected %d", c.Name(), index, len(data), expected)
	}
	switch l.predictor {
	case ifd.PredictorNone:
	case ifd.PredictorHorizontal:
		if err := codec.UndoHorizontalPredictor(data[:expected], opts); err != nil {
			return nil, err
		}
	default:
		return nil, planeio.NewError("decode chunk", planeio.ErrUnsupportedCodec, "predictor %d", l.predictor)
	}
	return data, nil
}
