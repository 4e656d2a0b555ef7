// Package pgm reads the Netpbm family of portable bitmaps, graymaps and pixmaps (P1-P6).
package pgm

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/planeio"
)

func init() {
	format.Register(Format{})
}

type Format struct{}

func (Format) Name() string {
	return "Portable Any Map"
}

func (Format) Suffixes() []string {
	return []string{"pbm", "pgm", "ppm", "pnm"}
}

func (Format) Probe(s *planeio.Stream) bool {
	head, err := s.Peek(2)
	if err != nil || len(head) < 2 {
		return false
	}
	return head[0] == 'P' && head[1] >= '1' && head[1] <= '6'
}

func (Format) Open(s *planeio.Stream) (format.Session, error) {
	return Open(s)
}

// Session is an opened Netpbm image: a single plane with one or three channels.
type Session struct {
	s        *planeio.Stream
	magic    string
	maxValue int
	offset   int64
	core     planeio.CoreMetadata

	// raster holds the decoded samples, interleaved, of ASCII and bitmap files.
	raster []byte
}

func Open(s *planeio.Stream) (*Session, error) {
	sess := &Session{s: s}
	if err := sess.init(); err != nil {
		return nil, err
	}
	return sess, nil
}

// raw returns true if samples are stored in binary rather than as decimal text.
func (sess *Session) raw() bool {
	return sess.magic == "P4" || sess.magic == "P5" || sess.magic == "P6"
}

// bitmap returns true for black and white images, whose samples are 0 or 1.
func (sess *Session) bitmap() bool {
	return sess.magic == "P1" || sess.magic == "P4"
}

func (sess *Session) init() error {
	var err error
	if sess.magic, err = nextToken(sess.s); err != nil {
		return err
	}
	if len(sess.magic) != 2 || sess.magic[0] != 'P' || sess.magic[1] < '1' || sess.magic[1] > '6' {
		return planeio.NewError("open PNM", planeio.ErrMalformed, "bad magic %q", sess.magic)
	}
	m := &sess.core
	if m.SizeX, err = headerInt(sess.s, "width", 1<<24); err != nil {
		return err
	}
	if m.SizeY, err = headerInt(sess.s, "height", 1<<24); err != nil {
		return err
	}
	m.PixelType = planeio.Uint8
	m.BitsPerPixel = 1
	sess.maxValue = 1
	if !sess.bitmap() {
		if sess.maxValue, err = headerInt(sess.s, "maximum value", 65535); err != nil {
			return err
		}
		m.BitsPerPixel = 8
		if sess.maxValue > 255 {
			m.PixelType = planeio.Uint16
			m.BitsPerPixel = 16
		}
	}
	sess.offset = sess.s.Pos()

	m.SizeC = 1
	if sess.magic == "P3" || sess.magic == "P6" {
		m.SizeC = 3
	}
	m.RGB = m.SizeC == 3
	m.DimensionOrder = "XYCZT"
	m.SizeZ = 1
	m.SizeT = 1
	m.ImageCount = 1

	if sess.raw() && !sess.bitmap() {
		if need := sess.offset + int64(m.PlaneSize()); need > sess.s.Length() {
			return planeio.NewError("open PNM", planeio.ErrMalformed, "%s needs %d bytes, has %d", sess.s.Name(), need, sess.s.Length())
		}
	}
	planeio.Debugf("%s: %s image, maximum value %d, %s\n", sess.s.Name(), sess.magic, sess.maxValue, m)
	return m.Validate()
}

// nextToken returns the next whitespace-separated header token, skipping comments.  The
// single whitespace byte ending the token is consumed.
func nextToken(s *planeio.Stream) (string, error) {
	var tok []byte
	for {
		b, err := s.ReadByte()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if len(tok) > 0 {
				return string(tok), nil
			}
			return "", planeio.NewError("read PNM header", planeio.ErrMalformed, "%s ends in header", s.Name())
		}
		if err != nil {
			return "", err
		}
		switch {
		case b == '#':
			if _, err := s.ReadLine(); err != nil && err != io.EOF {
				return "", err
			}
			if len(tok) > 0 {
				return string(tok), nil
			}
		case isSpace(b):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}

func headerInt(s *planeio.Stream, name string, maxValue int) (int, error) {
	tok, err := nextToken(s)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v <= 0 || v > maxValue {
		return 0, planeio.NewError("read PNM header", planeio.ErrMalformed, "bad %s %q", name, tok)
	}
	return v, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func (sess *Session) Metadata() []planeio.CoreMetadata {
	if sess.s == nil {
		return nil
	}
	return []planeio.CoreMetadata{sess.core}
}

// DecodePlane reads the r window of the image.  Bitmap samples are returned one per byte.
func (sess *Session) DecodePlane(series, no int, r planeio.Rect, buf []byte) error {
	if sess.s == nil {
		return planeio.NewError("decode plane", planeio.ErrUninitialized, "session closed")
	}
	if series != 0 {
		return planeio.NewError("decode plane", planeio.ErrOutOfRange, "series %d not in [0,1)", series)
	}
	if err := planeio.CheckPlaneParameters(sess.core, no, len(buf), r); err != nil {
		return err
	}
	interleaved := sess.core.RGB
	if sess.raw() && !sess.bitmap() {
		return format.ReadPlane(sess.s, sess.offset, sess.core, interleaved, r, buf)
	}
	if sess.raster == nil {
		var err error
		if sess.magic == "P4" {
			sess.raster, err = sess.unpackBits()
		} else {
			sess.raster, err = sess.parseText()
		}
		if err != nil {
			return err
		}
	}
	return format.ReadPlane(planeio.NewBytesStream(sess.s.Name(), sess.raster), 0, sess.core, interleaved, r, buf)
}

// unpackBits expands P4 rows, each padded to a whole byte, to one byte per pixel.
func (sess *Session) unpackBits() ([]byte, error) {
	m := sess.core
	rowBytes := (m.SizeX + 7) / 8
	if err := sess.s.Seek(sess.offset); err != nil {
		return nil, err
	}
	packed, err := sess.s.ReadFull(rowBytes * m.SizeY)
	if err != nil {
		return nil, planeio.NewError("decode plane", planeio.ErrMalformed, "bitmap truncated: %v", err)
	}
	raster := make([]byte, m.SizeX*m.SizeY)
	for y := 0; y < m.SizeY; y++ {
		row := packed[y*rowBytes:]
		for x := 0; x < m.SizeX; x++ {
			raster[y*m.SizeX+x] = (row[x/8] >> (7 - uint(x%8))) & 1
		}
	}
	return raster, nil
}

// parseText reads the decimal samples of P1, P2 and P3 files.  Plain bitmaps may omit the
// whitespace between samples.
func (sess *Session) parseText() ([]byte, error) {
	m := sess.core
	if err := sess.s.Seek(sess.offset); err != nil {
		return nil, err
	}
	text, err := sess.s.ReadFull(int(sess.s.Remaining()))
	if err != nil {
		return nil, err
	}
	n := m.SizeX * m.SizeY * m.RGBChannelCount()
	bpp := m.PixelType.BytesPerPixel()
	raster := make([]byte, 0, n*bpp)
	for _, line := range bytes.Split(text, []byte{'\n'}) {
		if i := bytes.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, field := range bytes.Fields(line) {
			if sess.bitmap() {
				for _, digit := range field {
					if digit != '0' && digit != '1' {
						return nil, planeio.NewError("decode plane", planeio.ErrMalformed, "bad bitmap sample %q", field)
					}
					raster = append(raster, digit-'0')
				}
				continue
			}
			v, err := strconv.Atoi(string(field))
			if err != nil || v < 0 || v > sess.maxValue {
				return nil, planeio.NewError("decode plane", planeio.ErrMalformed, "bad sample %q", field)
			}
			if bpp == 2 {
				raster = binary.BigEndian.AppendUint16(raster, uint16(v))
			} else {
				raster = append(raster, byte(v))
			}
		}
		if len(raster) >= n*bpp {
			break
		}
	}
	if len(raster) < n*bpp {
		return nil, planeio.NewError("decode plane", planeio.ErrMalformed, "%d of %d samples present", len(raster)/bpp, n)
	}
	return raster[:n*bpp], nil
}

// GlobalMetadata describes the header.
func (sess *Session) GlobalMetadata() map[string]interface{} {
	if sess.s == nil {
		return nil
	}
	return map[string]interface{}{
		"Magic":           sess.magic,
		"Black and white": sess.bitmap(),
		"Maximum value":   sess.maxValue,
	}
}

func (sess *Session) Close() error {
	if sess.s == nil {
		return nil
	}
	err := sess.s.Close()
	sess.s = nil
	sess.raster = nil
	return err
}
