package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/janelia-flyem/planeio/codec"
	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/ifd"
	"github.com/janelia-flyem/planeio/ifd/ifdtest"
	"github.com/janelia-flyem/planeio/planeio"
)

// sample is the test value of channel c at (x, y) in plane p.
func sample(p, x, y, c int) int {
	return x + 10*y + 100*c + 50*p
}

func openBytes(t *testing.T, data []byte) *Session {
	t.Helper()
	s := planeio.NewBytesStream("test.tif", data)
	if !(Format{}).Probe(s) {
		t.Fatalf("probe rejected TIFF data")
	}
	sess, err := Open(s)
	if err != nil {
		t.Fatalf("unable to open TIFF: %v", err)
	}
	return sess
}

// expectedWindow builds the channel-after-channel bytes of a window.
func expectedWindow(p int, r planeio.Rect, channels, bytesPerSample int, order binary.AppendByteOrder) []byte {
	var out []byte
	for c := 0; c < channels; c++ {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				v := sample(p, x, y, c)
				switch bytesPerSample {
				case 1:
					out = append(out, byte(v))
				case 2:
					out = order.AppendUint16(out, uint16(v+1000))
				}
			}
		}
	}
	return out
}

func decode(t *testing.T, sess *Session, series, no int, r planeio.Rect) []byte {
	t.Helper()
	m := sess.Metadata()[series]
	buf := make([]byte, m.RectSize(r))
	if err := sess.DecodePlane(series, no, r, buf); err != nil {
		t.Fatalf("decode series %d plane %d %s: %v", series, no, r, err)
	}
	return buf
}

// grayStrips returns a little-endian 8-bit container of planes 6x4 with 3 rows per strip.
func grayStrips(planes int) []byte {
	b := ifdtest.New(true)
	for p := 0; p < planes; p++ {
		var strips [][]byte
		for y0 := 0; y0 < 4; y0 += 3 {
			var strip []byte
			for y := y0; y < min(y0+3, 4); y++ {
				for x := 0; x < 6; x++ {
					strip = append(strip, byte(sample(p, x, y, 0)))
				}
			}
			strips = append(strips, strip)
		}
		b.AddDirectory().
			Short(uint16(ifd.ImageWidth), 6).
			Short(uint16(ifd.ImageLength), 4).
			Short(uint16(ifd.BitsPerSample), 8).
			Short(uint16(ifd.RowsPerStrip), 3).
			ASCII(uint16(ifd.Software), "planeio test").
			Strips(strips...)
	}
	return b.Bytes()
}

func TestGrayStrips(t *testing.T) {
	sess := openBytes(t, grayStrips(2))
	defer sess.Close()

	meta := sess.Metadata()
	if len(meta) != 1 {
		t.Fatalf("expected 1 series, got %d", len(meta))
	}
	m := meta[0]
	if m.SizeX != 6 || m.SizeY != 4 || m.SizeT != 2 || m.ImageCount != 2 || m.PixelType != planeio.Uint8 {
		t.Errorf("bad metadata: %s", m)
	}
	if m.RGB || !m.LittleEndian || m.DimensionOrder != "XYCZT" || m.BitsPerPixel != 8 {
		t.Errorf("bad metadata flags: %+v", m)
	}

	full := planeio.FullRect(m)
	got := decode(t, sess, 0, 1, full)
	if expected := expectedWindow(1, full, 1, 1, nil); !bytes.Equal(got, expected) {
		t.Errorf("full plane: expected %v, got %v", expected, got)
	}

	window := planeio.Rect{X: 2, Y: 1, W: 3, H: 3}
	got = decode(t, sess, 0, 0, window)
	if expected := expectedWindow(0, window, 1, 1, nil); !bytes.Equal(got, expected) {
		t.Errorf("window: expected %v, got %v", expected, got)
	}
	if again := decode(t, sess, 0, 0, window); !bytes.Equal(got, again) {
		t.Errorf("decoding the same window twice gave different bytes")
	}

	global := sess.GlobalMetadata()
	if global["Software"] != `"planeio test"` {
		t.Errorf("expected Software in global metadata, got %v", global["Software"])
	}
}

func TestOutOfRange(t *testing.T) {
	sess := openBytes(t, grayStrips(1))
	defer sess.Close()

	tests := []struct {
		name   string
		series int
		no     int
		r      planeio.Rect
	}{
		{"past right edge", 0, 0, planeio.Rect{X: 4, Y: 0, W: 3, H: 1}},
		{"past bottom edge", 0, 0, planeio.Rect{X: 0, Y: 3, W: 1, H: 2}},
		{"bad plane", 0, 1, planeio.Rect{X: 0, Y: 0, W: 1, H: 1}},
		{"bad series", 1, 0, planeio.Rect{X: 0, Y: 0, W: 1, H: 1}},
		{"huge width", 0, 0, planeio.Rect{X: 1, Y: 0, W: math.MaxInt, H: 1}},
		{"huge height", 0, 0, planeio.Rect{X: 0, Y: 1, W: 1, H: math.MaxInt}},
		{"huge area", 0, 0, planeio.Rect{X: 0, Y: 0, W: math.MaxInt / 2, H: 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := bytes.Repeat([]byte{0xEE}, 64)
			err := sess.DecodePlane(tc.series, tc.no, tc.r, buf)
			if !errors.Is(err, planeio.ErrOutOfRange) {
				t.Errorf("expected ErrOutOfRange, got %v", err)
			}
			if !bytes.Equal(buf, bytes.Repeat([]byte{0xEE}, 64)) {
				t.Errorf("buffer modified by failed decode")
			}
		})
	}
}

func TestClosedSession(t *testing.T) {
	sess := openBytes(t, grayStrips(1))
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second close should be harmless: %v", err)
	}
	if meta := sess.Metadata(); meta != nil {
		t.Errorf("closed session should have no metadata")
	}
	buf := make([]byte, 24)
	err := sess.DecodePlane(0, 0, planeio.Rect{X: 0, Y: 0, W: 6, H: 4}, buf)
	if !errors.Is(err, planeio.ErrUninitialized) {
		t.Errorf("expected ErrUninitialized, got %v", err)
	}
}

func TestTiledRGB(t *testing.T) {
	const width, length, tile = 6, 5, 4
	b := ifdtest.New(false)
	var tiles [][]byte
	for ty := 0; ty < 2; ty++ {
		for tx := 0; tx < 2; tx++ {
			var raw []byte
			for yy := 0; yy < tile; yy++ {
				for xx := 0; xx < tile; xx++ {
					x, y := tx*tile+xx, ty*tile+yy
					for c := 0; c < 3; c++ {
						var v uint16
						if x < width && y < length {
							v = uint16(sample(0, x, y, c) + 1000)
						}
						raw = binary.BigEndian.AppendUint16(raw, v)
					}
				}
			}
			compressed, err := codec.Deflate{}.Compress(raw, tile, tile, nil, codec.DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			tiles = append(tiles, compressed)
		}
	}
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), width).
		Short(uint16(ifd.ImageLength), length).
		Short(uint16(ifd.BitsPerSample), 16, 16, 16).
		Short(uint16(ifd.Compression), codec.CompressionDeflate).
		Short(uint16(ifd.PhotometricInterpretation), ifd.PhotometricRGB).
		Short(uint16(ifd.SamplesPerPixel), 3).
		Short(uint16(ifd.TileWidth), tile).
		Short(uint16(ifd.TileLength), tile).
		Tiles(tiles...)

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	m := sess.Metadata()[0]
	if !m.RGB || m.SizeC != 3 || m.PixelType != planeio.Uint16 || m.LittleEndian {
		t.Fatalf("bad RGB metadata: %+v", m)
	}
	for _, r := range []planeio.Rect{planeio.FullRect(m), {X: 3, Y: 2, W: 3, H: 3}, {X: 0, Y: 4, W: 6, H: 1}} {
		got := decode(t, sess, 0, 0, r)
		if expected := expectedWindow(0, r, 3, 2, binary.BigEndian); !bytes.Equal(got, expected) {
			t.Errorf("window %s: expected %v, got %v", r, expected, got)
		}
	}
}

func TestPlanarStrips(t *testing.T) {
	const width, length = 5, 3
	b := ifdtest.New(true)
	var strips [][]byte
	for c := 0; c < 3; c++ {
		for y0 := 0; y0 < length; y0 += 2 {
			var strip []byte
			for y := y0; y < min(y0+2, length); y++ {
				for x := 0; x < width; x++ {
					strip = append(strip, byte(sample(0, x, y, c)))
				}
			}
			strips = append(strips, strip)
		}
	}
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), width).
		Short(uint16(ifd.ImageLength), length).
		Short(uint16(ifd.BitsPerSample), 8, 8, 8).
		Short(uint16(ifd.SamplesPerPixel), 3).
		Short(uint16(ifd.RowsPerStrip), 2).
		Short(uint16(ifd.PlanarConfiguration), ifd.PlanarPlanar).
		Strips(strips...)

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	r := planeio.Rect{X: 1, Y: 1, W: 3, H: 2}
	got := decode(t, sess, 0, 0, r)
	if expected := expectedWindow(0, r, 3, 1, nil); !bytes.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestPackBitsPredictor(t *testing.T) {
	const width, length = 4, 2
	var raw []byte
	for y := 0; y < length; y++ {
		prev := 0
		for x := 0; x < width; x++ {
			v := sample(0, x, y, 0)
			raw = append(raw, byte(v-prev))
			prev = v
		}
	}
	packed, err := codec.PackBits{}.Compress(raw, width, length, nil, codec.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b := ifdtest.New(true)
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), width).
		Short(uint16(ifd.ImageLength), length).
		Short(uint16(ifd.BitsPerSample), 8).
		Short(uint16(ifd.Compression), codec.CompressionPackBits).
		Short(uint16(ifd.Predictor), ifd.PredictorHorizontal).
		Strips(packed)

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	full := planeio.FullRect(sess.Metadata()[0])
	if got, expected := decode(t, sess, 0, 0, full), expectedWindow(0, full, 1, 1, nil); !bytes.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestWidenFloat(t *testing.T) {
	tests := []struct {
		name     string
		f        narrowFloat
		v        uint32
		expected uint32
	}{
		{"half one", float16, 0x3C00, 0x3F800000},
		{"half minus two", float16, 0xC000, 0xC0000000},
		{"half zero", float16, 0x0000, 0x00000000},
		{"half negative zero", float16, 0x8000, 0x80000000},
		{"half infinity", float16, 0x7C00, 0x7F800000},
		{"half smallest denormal", float16, 0x0001, 0x33800000},
		{"half largest denormal", float16, 0x03FF, 0x387FC000},
		{"float24 one", float24, 0x3F0000, 0x3F800000},
		{"float24 one and a half", float24, 0x3F8000, 0x3FC00000},
		{"float24 infinity", float24, 0x7F0000, 0x7F800000},
	}
	for _, tc := range tests {
		if got := tc.f.widen(tc.v); got != tc.expected {
			t.Errorf("%s: expected %08x, got %08x", tc.name, tc.expected, got)
		}
	}
}

func TestHalfFloatPlane(t *testing.T) {
	b := ifdtest.New(true)
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), 2).
		Short(uint16(ifd.ImageLength), 1).
		Short(uint16(ifd.BitsPerSample), 16).
		Short(uint16(ifd.SampleFormat), ifd.SampleFloat).
		Strips([]byte{0x00, 0x3C, 0x00, 0xC0})

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	m := sess.Metadata()[0]
	if m.PixelType != planeio.Float || m.BitsPerPixel != 16 {
		t.Fatalf("expected 16 bit float pixels, got %s with %d bits", m.PixelType, m.BitsPerPixel)
	}
	got := decode(t, sess, 0, 0, planeio.FullRect(m))
	expected := []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0xC0}
	if !bytes.Equal(got, expected) {
		t.Errorf("expected %x, got %x", expected, got)
	}
}

func TestHalfFloatHugeRect(t *testing.T) {
	b := ifdtest.New(true)
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), 2).
		Short(uint16(ifd.ImageLength), 1).
		Short(uint16(ifd.BitsPerSample), 16).
		Short(uint16(ifd.SampleFormat), ifd.SampleFloat).
		Strips([]byte{0x00, 0x3C, 0x00, 0xC0})

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	buf := make([]byte, 8)
	err := sess.DecodePlane(0, 0, planeio.Rect{X: 1, Y: 0, W: math.MaxInt, H: 1}, buf)
	if !errors.Is(err, planeio.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestChunkPastEnd(t *testing.T) {
	b := ifdtest.New(true).BigTIFF()
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), 2).
		Short(uint16(ifd.ImageLength), 1).
		Short(uint16(ifd.BitsPerSample), 8).
		Long8(uint16(ifd.StripOffsets), 16).
		Long8(uint16(ifd.StripByteCounts), math.MaxInt64)

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	buf := make([]byte, 2)
	err := sess.DecodePlane(0, 0, planeio.FullRect(sess.Metadata()[0]), buf)
	if !errors.Is(err, planeio.ErrMalformed) {
		t.Errorf("expected ErrMalformed for chunk past end, got %v", err)
	}
}

func TestThumbnailDirectories(t *testing.T) {
	b := ifdtest.New(true)
	b.AddDirectory().
		Long(uint16(ifd.NewSubfileType), 0).
		Short(uint16(ifd.ImageWidth), 2).
		Short(uint16(ifd.ImageLength), 2).
		Short(uint16(ifd.BitsPerSample), 8).
		Strips([]byte{1, 2, 3, 4})
	b.AddDirectory().
		Long(uint16(ifd.NewSubfileType), 1).
		Short(uint16(ifd.ImageWidth), 1).
		Short(uint16(ifd.ImageLength), 1).
		Short(uint16(ifd.BitsPerSample), 8).
		Strips([]byte{9})

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	if n := sess.Metadata()[0].ImageCount; n != 1 {
		t.Errorf("expected 1 plane, got %d", n)
	}
	if n := len(sess.Thumbnails()); n != 1 {
		t.Errorf("expected 1 thumbnail directory, got %d", n)
	}
}

func TestJPEG2000Pyramid(t *testing.T) {
	cs := []byte{
		0xFF, 0x4F,
		0xFF, 0x52, 0x00, 0x0C, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0x04, 0x04, 0x00, 0x01,
		0xFF, 0x90, 0x00, 0x0A,
	}
	tiles := make([][]byte, 16)
	for i := range tiles {
		tiles[i] = cs
	}
	b := ifdtest.New(true)
	b.AddDirectory().
		Short(uint16(ifd.ImageWidth), 1000).
		Short(uint16(ifd.ImageLength), 1000).
		Short(uint16(ifd.BitsPerSample), 8).
		Short(uint16(ifd.Compression), codec.CompressionJPEG2000).
		Short(uint16(ifd.TileWidth), 256).
		Short(uint16(ifd.TileLength), 256).
		Tiles(tiles...)

	sess := openBytes(t, b.Bytes())
	defer sess.Close()
	meta := sess.Metadata()
	if len(meta) != 3 {
		t.Fatalf("expected base and 2 resolution levels, got %d series", len(meta))
	}
	if meta[0].Thumbnail || meta[0].SizeX != 1000 {
		t.Errorf("bad base series: %s", meta[0])
	}
	if !meta[1].Thumbnail || meta[1].SizeX != 500 || meta[1].SizeY != 500 {
		t.Errorf("bad level 1 series: %s", meta[1])
	}
	if meta[2].SizeX != 250 {
		t.Errorf("bad level 2 series: %s", meta[2])
	}
	d, err := sess.Directory(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if tw, _ := d.TileWidth(); tw != 128 {
		t.Errorf("expected level 1 tile width 128, got %d", tw)
	}
	buf := make([]byte, 16)
	err = sess.DecodePlane(1, 0, planeio.Rect{X: 0, Y: 0, W: 4, H: 4}, buf)
	if !errors.Is(err, planeio.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec decoding JPEG-2000, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	s := planeio.NewBytesStream("test.tif", grayStrips(1))
	f, err := format.Detect(s)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != (Format{}).Name() || s.Pos() != 0 {
		t.Errorf("detected %q at position %d", f.Name(), s.Pos())
	}
	sess, err := format.OpenStream(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Error(err)
	}
	if _, err := format.Detect(planeio.NewBytesStream("junk", []byte("not an image"))); err == nil {
		t.Errorf("expected junk to match no format")
	}
}
