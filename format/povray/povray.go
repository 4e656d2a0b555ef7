// Package povray reads POV-Ray density files (df3): a big-endian header of three uint16
// dimensions followed by voxels of 1, 2 or 4 bytes.
package povray

import (
	"strings"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/planeio"
)

func init() {
	format.Register(Format{})
}

const headerSize = 6

type Format struct{}

func (Format) Name() string {
	return "POV-Ray"
}

func (Format) Suffixes() []string {
	return []string{"df3"}
}

// Probe accepts streams named *.df3 whose length matches the header's voxel count.
func (Format) Probe(s *planeio.Stream) bool {
	if !strings.HasSuffix(strings.ToLower(s.Name()), ".df3") {
		return false
	}
	s.SetOrder(false)
	x, y, z, err := readDims(s)
	if err != nil {
		return false
	}
	_, err = voxelBytes(s.Length(), x, y, z)
	return err == nil
}

func (Format) Open(s *planeio.Stream) (format.Session, error) {
	return Open(s)
}

func readDims(s *planeio.Stream) (x, y, z int, err error) {
	var dims [3]int
	for i := range dims {
		v, err := s.ReadUint16()
		if err != nil {
			return 0, 0, 0, err
		}
		dims[i] = int(v)
	}
	return dims[0], dims[1], dims[2], nil
}

// voxelBytes returns the # of bytes per voxel implied by the stream length.
func voxelBytes(length int64, x, y, z int) (int, error) {
	voxels := int64(x) * int64(y) * int64(z)
	if voxels == 0 {
		return 0, planeio.NewError("open POV-Ray", planeio.ErrMalformed, "empty volume %d x %d x %d", x, y, z)
	}
	n := (length - headerSize) / voxels
	if n != 1 && n != 2 && n != 4 {
		return 0, planeio.NewError("open POV-Ray", planeio.ErrMalformed, "%d bytes for %d voxels", length-headerSize, voxels)
	}
	return int(n), nil
}

type Session struct {
	s    *planeio.Stream
	core planeio.CoreMetadata
}

func Open(s *planeio.Stream) (*Session, error) {
	s.SetOrder(false)
	if err := s.Seek(0); err != nil {
		return nil, err
	}
	x, y, z, err := readDims(s)
	if err != nil {
		return nil, planeio.NewError("open POV-Ray", planeio.ErrMalformed, "header: %v", err)
	}
	n, err := voxelBytes(s.Length(), x, y, z)
	if err != nil {
		return nil, err
	}
	pt, err := planeio.PixelTypeFromBytes(n, false, false)
	if err != nil {
		return nil, err
	}
	m := planeio.CoreMetadata{
		SizeX:          x,
		SizeY:          y,
		SizeZ:          z,
		SizeC:          1,
		SizeT:          1,
		PixelType:      pt,
		BitsPerPixel:   8 * n,
		DimensionOrder: "XYZCT",
		ImageCount:     z,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	planeio.Debugf("%s: POV-Ray volume %s\n", s.Name(), m)
	return &Session{s: s, core: m}, nil
}

func (sess *Session) Metadata() []planeio.CoreMetadata {
	if sess.s == nil {
		return nil
	}
	return []planeio.CoreMetadata{sess.core}
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
	offset := headerSize + int64(sess.core.PlaneSize())*int64(no)
	return format.ReadPlane(sess.s, offset, sess.core, false, r, buf)
}

func (sess *Session) Close() error {
	if sess.s == nil {
		return nil
	}
	err := sess.s.Close()
	sess.s = nil
	return err
}
