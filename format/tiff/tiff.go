// Package tiff reads TIFF and BigTIFF containers.  Every primary directory is one plane
// of series 0.  Directories compressed with JPEG-2000 expose each embedded resolution
// level as an additional, thumbnail series.
package tiff

import (
	"bytes"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/ifd"
	"github.com/janelia-flyem/planeio/planeio"
	"github.com/janelia-flyem/planeio/pyramid"
)

func init() {
	format.Register(Format{})
}

// Format is the TIFF adapter.
type Format struct{}

func (Format) Name() string {
	return "Tagged Image File Format"
}

func (Format) Suffixes() []string {
	return []string{"tif", "tiff", "tf2", "tf8", "btf"}
}

var magics = [][]byte{
	{'I', 'I', 42, 0},
	{'M', 'M', 0, 42},
	{'I', 'I', 43, 0},
	{'M', 'M', 0, 43},
}

func (Format) Probe(s *planeio.Stream) bool {
	head, err := s.Peek(4)
	if err != nil || len(head) < 4 {
		return false
	}
	for _, magic := range magics {
		if bytes.Equal(head, magic) {
			return true
		}
	}
	return false
}

func (Format) Open(s *planeio.Stream) (format.Session, error) {
	return Open(s)
}

// Session is an opened TIFF container.
type Session struct {
	s      *planeio.Stream
	parser *ifd.Parser

	primary   ifd.List
	auxiliary ifd.List

	// levels is the # of resolution levels per primary directory and subResolution the
	// synthesized directories, indexed by plane then by series-1.
	levels        []int
	subResolution [][]*ifd.Directory

	core []planeio.CoreMetadata
}

// Open parses every directory of s and builds the series records.  The session owns s.
func Open(s *planeio.Stream) (*Session, error) {
	sess := &Session{s: s, parser: ifd.NewParser(s)}
	if err := sess.init(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (sess *Session) init() error {
	littleEndian, err := sess.parser.CheckHeader()
	if err != nil {
		return err
	}
	planeio.Debugf("Reading directories of %s (little endian %t)\n", sess.s.Name(), littleEndian)
	all, err := sess.parser.Directories()
	if err != nil {
		return err
	}
	if err := all.Fill(); err != nil {
		return err
	}
	if sess.primary, sess.auxiliary, err = ifd.Classify(all); err != nil {
		return err
	}
	if len(sess.primary) == 0 {
		return planeio.NewError("open TIFF", planeio.ErrMalformed, "all %d directories of %s are thumbnails", len(all), sess.s.Name())
	}

	sess.levels = make([]int, len(sess.primary))
	sess.subResolution = make([][]*ifd.Directory, len(sess.primary))
	for i, d := range sess.primary {
		levels, found, err := sess.parser.ResolutionLevels(d)
		if err != nil {
			return err
		}
		if !found || levels == 0 {
			continue
		}
		if sess.subResolution[i], err = pyramid.Synthesize(d, levels); err != nil {
			return err
		}
		sess.levels[i] = levels
	}

	base, err := sess.baseRecord()
	if err != nil {
		return err
	}
	sess.core = []planeio.CoreMetadata{base}
	if len(sess.subResolution[0]) != 0 {
		for i, dirs := range sess.subResolution {
			if len(dirs) != len(sess.subResolution[0]) {
				return planeio.NewError("open TIFF", planeio.ErrMalformed,
					"plane %d has %d resolution levels, plane 0 has %d", i, len(dirs), len(sess.subResolution[0]))
			}
		}
		records, err := pyramid.Records(base, sess.subResolution[0])
		if err != nil {
			return err
		}
		sess.core = append(sess.core, records...)
	}
	for series, m := range sess.core {
		if err := m.Validate(); err != nil {
			return planeio.WrapError("open TIFF", err)
		}
		planeio.Debugf("%s series %d: %s\n", sess.s.Name(), series, m)
	}
	return nil
}

// baseRecord derives series 0 from the first primary directory.
func (sess *Session) baseRecord() (planeio.CoreMetadata, error) {
	var m planeio.CoreMetadata
	first := sess.primary[0]
	photometric, err := first.Photometric()
	if err != nil {
		return m, err
	}
	samples, err := first.SamplesPerPixel()
	if err != nil {
		return m, err
	}
	if m.SizeX, err = first.ImageWidth(); err != nil {
		return m, err
	}
	if m.SizeY, err = first.ImageLength(); err != nil {
		return m, err
	}
	if m.PixelType, err = first.PixelType(); err != nil {
		return m, err
	}
	bps, err := first.BitsPerSample()
	if err != nil {
		return m, err
	}
	m.RGB = samples > 1 || photometric == ifd.PhotometricRGB
	m.Interleaved = false
	m.LittleEndian = first.LittleEndian()
	m.SizeZ = 1
	m.SizeC = 1
	if m.RGB {
		m.SizeC = samples
	}
	m.SizeT = len(sess.primary)
	if _, found := first.Get(ifd.ColorMap); found && photometric == ifd.PhotometricPalette {
		m.Indexed = true
		m.SizeC = 1
		m.RGB = false
	}
	if m.SizeC == 1 {
		m.RGB = false
	}
	m.DimensionOrder = "XYCZT"
	m.BitsPerPixel = bps[0]
	m.ImageCount = len(sess.primary)
	return m, nil
}

func (sess *Session) Metadata() []planeio.CoreMetadata {
	if sess.s == nil {
		return nil
	}
	return append([]planeio.CoreMetadata(nil), sess.core...)
}

// Directory returns the directory addressed by a series and plane: a primary directory for
// series 0 and a synthesized one for coarser series.
func (sess *Session) Directory(series, no int) (*ifd.Directory, error) {
	if sess.s == nil {
		return nil, planeio.NewError("directory", planeio.ErrUninitialized, "session closed")
	}
	if series < 0 || series >= len(sess.core) {
		return nil, planeio.NewError("directory", planeio.ErrOutOfRange, "series %d not in [0,%d)", series, len(sess.core))
	}
	if no < 0 || no >= len(sess.primary) {
		return nil, planeio.NewError("directory", planeio.ErrOutOfRange, "plane %d not in [0,%d)", no, len(sess.primary))
	}
	if series == 0 {
		return sess.primary[no], nil
	}
	return sess.subResolution[no][series-1], nil
}

// Thumbnails returns the auxiliary directories.
func (sess *Session) Thumbnails() ifd.List {
	return sess.auxiliary
}

// GlobalMetadata returns the values of the first primary directory keyed by tag name.
func (sess *Session) GlobalMetadata() map[string]interface{} {
	if sess.s == nil {
		return nil
	}
	meta := make(map[string]interface{})
	first := sess.primary[0]
	for _, tag := range first.Tags() {
		v, _ := first.Get(tag)
		meta[tag.String()] = v.String()
	}
	if err := first.Skipped(); err != nil {
		meta["Skipped tags"] = err.Error()
	}
	return meta
}

func (sess *Session) Close() error {
	if sess.s == nil {
		return nil
	}
	err := sess.s.Close()
	sess.s = nil
	sess.parser = nil
	sess.primary = nil
	sess.auxiliary = nil
	sess.subResolution = nil
	sess.levels = nil
	sess.core = nil
	return err
}
