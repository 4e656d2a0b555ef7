// Package burleigh reads scanning probe microscope images written by Burleigh
// instruments.  A file holds one little-endian uint16 plane; version 1 files keep their
// scan parameters in a 40 byte trailer and version 2 files in a 260 byte header.
package burleigh

import (
	"math"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/planeio"
)

func init() {
	format.Register(Format{})
}

type Format struct{}

func (Format) Name() string {
	return "Burleigh"
}

func (Format) Suffixes() []string {
	return []string{"img"}
}

func (Format) Probe(s *planeio.Stream) bool {
	magic, err := s.Peek(4)
	if err != nil || len(magic) < 4 {
		return false
	}
	return magic[0] == 0x66 && magic[1] == 0x66 && magic[3] == 0x40 && (magic[2] == 0x46 || magic[2] == 0x06)
}

func (Format) Open(s *planeio.Stream) (format.Session, error) {
	return Open(s)
}

const (
	trailerSize = 40
	v1Pixels    = 8
	v2Pixels    = 260
)

// Scan holds the acquisition parameters recorded with the image.
type Scan struct {
	Version       int
	XSize         float64
	YSize         float64
	ZSize         float64
	TimePerPixel  float64 // seconds
	Magnification int
	Mode          int
	Gain          int
	SampleVolts   float64
	Current       float64
	Force         float64 // version 2 only
}

type Session struct {
	s      *planeio.Stream
	core   planeio.CoreMetadata
	scan   Scan
	pixels int64
}

func Open(s *planeio.Stream) (*Session, error) {
	sess := &Session{s: s}
	if err := sess.init(); err != nil {
		return nil, err
	}
	return sess, nil
}

// fieldReader reads little-endian fields, keeping the first error.
type fieldReader struct {
	s   *planeio.Stream
	err error
}

func (r *fieldReader) skip(n int64) {
	if r.err == nil {
		r.err = r.s.Skip(n)
	}
}

func (r *fieldReader) short() int {
	if r.err != nil {
		return 0
	}
	v, err := r.s.ReadUint16()
	r.err = err
	return int(int16(v))
}

func (r *fieldReader) int() int {
	if r.err != nil {
		return 0
	}
	v, err := r.s.ReadUint32()
	r.err = err
	return int(int32(v))
}

func (r *fieldReader) float() float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.s.ReadFloat32()
	r.err = err
	return float64(v)
}

func (sess *Session) init() error {
	sess.s.SetOrder(true)
	r := &fieldReader{s: sess.s}
	sc := &sess.scan
	sc.Version = int(r.float()) - 1
	m := &sess.core
	m.SizeX = int(uint16(r.short()))
	m.SizeY = int(uint16(r.short()))
	if r.err != nil {
		return planeio.NewError("open Burleigh", planeio.ErrMalformed, "header: %v", r.err)
	}

	switch sc.Version {
	case 1:
		if sess.s.Length() < trailerSize {
			return planeio.NewError("open Burleigh", planeio.ErrMalformed, "%s has no trailer", sess.s.Name())
		}
		if err := sess.s.Seek(sess.s.Length() - trailerSize); err != nil {
			return err
		}
		r.skip(12)
		sc.XSize = float64(r.int())
		sc.YSize = float64(r.int())
		sc.ZSize = float64(r.int())
		sc.TimePerPixel = float64(r.short() * 50)
		sc.Magnification = magnification(r.short())
		if sc.Magnification > 0 {
			sc.XSize /= float64(sc.Magnification)
			sc.YSize /= float64(sc.Magnification)
			sc.ZSize /= float64(sc.Magnification)
		}
		sc.Mode = r.short()
		sc.Gain = r.short()
		sc.SampleVolts = r.float() / 1000
		sc.Current = r.float()
		sess.pixels = v1Pixels
	case 2:
		r.skip(14)
		sc.XSize = float64(r.int())
		sc.YSize = float64(r.int())
		sc.ZSize = float64(r.int())
		sc.Mode = r.short()
		r.skip(4)
		sc.Gain = r.short()
		sc.TimePerPixel = float64(r.short() * 50)
		r.skip(12)
		sc.SampleVolts = r.float()
		sc.Current = r.float()
		sc.Force = r.float()
		sess.pixels = v2Pixels
	default:
		return planeio.NewError("open Burleigh", planeio.ErrMalformed, "unknown version %d", sc.Version)
	}
	if r.err != nil {
		return planeio.NewError("open Burleigh", planeio.ErrMalformed, "version %d parameters: %v", sc.Version, r.err)
	}

	m.PixelType = planeio.Uint16
	m.BitsPerPixel = 16
	m.LittleEndian = true
	m.SizeZ = 1
	m.SizeC = 1
	m.SizeT = 1
	m.ImageCount = 1
	m.DimensionOrder = "XYZCT"
	if err := m.Validate(); err != nil {
		return err
	}
	if need := sess.pixels + int64(m.PlaneSize()); need > sess.s.Length() {
		return planeio.NewError("open Burleigh", planeio.ErrMalformed, "%s needs %d bytes, has %d", sess.s.Name(), need, sess.s.Length())
	}
	planeio.Debugf("%s: Burleigh version %d, %s\n", sess.s.Name(), sc.Version, m)
	return nil
}

// magnification maps the stored magnification code to its factor.
func magnification(code int) int {
	switch code {
	case 3:
		return 10
	case 4:
		return 50
	case 5:
		return 250
	}
	return code
}

func (sess *Session) Metadata() []planeio.CoreMetadata {
	if sess.s == nil {
		return nil
	}
	return []planeio.CoreMetadata{sess.core}
}

// Scan returns the acquisition parameters.
func (sess *Session) Scan() Scan {
	return sess.scan
}

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
	return format.ReadPlane(sess.s, sess.pixels, sess.core, false, r, buf)
}

func (sess *Session) GlobalMetadata() map[string]interface{} {
	if sess.s == nil {
		return nil
	}
	sc := sess.scan
	meta := map[string]interface{}{
		"Version":            sc.Version,
		"Image mode":         sc.Mode,
		"Z gain":             sc.Gain,
		"Time per pixel (s)": sc.TimePerPixel,
		"Sample volts":       sc.SampleVolts,
		"Tunnel current":     sc.Current,
		"Magnification":      sc.Magnification,
		"Physical size X":    sc.XSize / float64(sess.core.SizeX),
		"Physical size Y":    sc.YSize / float64(sess.core.SizeY),
		"Physical size Z":    sc.ZSize,
	}
	if sc.Version == 2 {
		meta["Force"] = sc.Force
	}
	for k, v := range meta {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			delete(meta, k)
		}
	}
	return meta
}

func (sess *Session) Close() error {
	if sess.s == nil {
		return nil
	}
	err := sess.s.Close()
	sess.s = nil
	return err
}
