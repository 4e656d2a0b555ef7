package ifd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/janelia-flyem/planeio/planeio"
)

// ErrNotFilled is returned by accessors of a directory that has neither been filled nor
// knows the stream it was parsed from.
var ErrNotFilled = errors.New("directory not filled")

// ErrReadOnly is returned by Put on a directory read from a container.
var ErrReadOnly = errors.New("directory read from container is read-only")

// Directory is one image file directory: a mapping from tags to typed values.  Directories
// returned by a Parser are unfilled; Fill reads every deferred entry once.  Accessors on an
// unfilled directory fill it from its own stream first.
type Directory struct {
	// Offset is the position of the directory within its container, or -1 for a
	// synthesized directory.
	Offset int64

	order   binary.ByteOrder
	entries []Entry
	values  map[Tag]Value
	filled  bool
	skipped error

	// stream is the container the entries were read from.  It is only used for filling.
	stream *planeio.Stream
}

// New returns an empty, filled directory whose values are set with Put.
func New(littleEndian bool) *Directory {
	d := &Directory{Offset: -1, values: make(map[Tag]Value), filled: true, order: binary.BigEndian}
	if littleEndian {
		d.order = binary.LittleEndian
	}
	return d
}

func newDeferred(s *planeio.Stream, offset int64, entries []Entry) *Directory {
	return &Directory{
		Offset:  offset,
		order:   s.Order(),
		entries: entries,
		values:  make(map[Tag]Value, len(entries)),
		stream:  s,
	}
}

// Entries returns the raw entries of a parsed directory.
func (d *Directory) Entries() []Entry {
	return d.entries
}

// Filled returns true once every entry has been read.
func (d *Directory) Filled() bool {
	return d.filled
}

// LittleEndian returns the byte order of the container the directory was read from.
func (d *Directory) LittleEndian() bool {
	return d.order == binary.LittleEndian
}

// Get returns the value of a tag.  It never performs I/O, so an unfilled directory reports
// every deferred tag as absent.
func (d *Directory) Get(tag Tag) (Value, bool) {
	v, found := d.values[tag]
	return v, found
}

// Put sets the value of a tag.  Only directories built by New or Copy accept values; a
// directory read from a container returns ErrReadOnly.
func (d *Directory) Put(tag Tag, v Value) error {
	if d.Offset >= 0 {
		return ErrReadOnly
	}
	if d.values == nil {
		d.values = make(map[Tag]Value)
	}
	d.values[tag] = v
	return nil
}

// Tags returns the tags with values in ascending order.
func (d *Directory) Tags() []Tag {
	tags := make([]Tag, 0, len(d.values))
	for tag := range d.values {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Skipped returns the combined errors of cosmetic tags that could not be decoded, or nil.
func (d *Directory) Skipped() error {
	return d.skipped
}

// Fill reads every deferred entry from s, converting inline and out-of-line values into
// typed values.  A failure on a geometry, codec or pixel-type tag is returned and leaves the
// directory unfilled; failures on other tags are logged and skipped.  Filling an already
// filled directory does nothing.
func (d *Directory) Fill(s *planeio.Stream) error {
	if d.filled {
		return nil
	}
	if s == nil {
		return ErrNotFilled
	}
	var skipped *multierror.Error
	for _, e := range d.entries {
		if _, found := d.values[e.Tag]; found {
			continue
		}
		v, err := d.readEntry(s, e)
		if err != nil {
			if required[e.Tag] {
				return planeio.WrapError(fmt.Sprintf("fill directory at offset %d", d.Offset), err)
			}
			skipped = multierror.Append(skipped, err)
			continue
		}
		d.values[e.Tag] = v
	}
	if err := skipped.ErrorOrNil(); err != nil {
		planeio.Warningf("Skipped %d cosmetic tags in directory at offset %d: %v\n", len(skipped.Errors), d.Offset, err)
		d.skipped = err
	}
	d.filled = true
	return nil
}

func (d *Directory) readEntry(s *planeio.Stream, e Entry) (Value, error) {
	n, err := e.dataLen()
	if err != nil {
		return Value{}, err
	}
	raw := e.Raw
	if !e.inline(n) {
		offset := e.offset(d.order)
		if offset < 0 || uint64(offset)+n > uint64(s.Length()) {
			return Value{}, planeio.NewError("read entry", planeio.ErrMalformed,
				"%s needs %d bytes at offset %d, beyond %d byte container", e.Tag, n, offset, s.Length())
		}
		if err := s.Seek(offset); err != nil {
			return Value{}, err
		}
		if raw, err = s.ReadFull(int(n)); err != nil {
			return Value{}, err
		}
	}
	return decodeValue(e, raw, d.order)
}

// Copy returns an independent filled directory with the same values.
func (d *Directory) Copy() (*Directory, error) {
	if err := d.ensureFilled(); err != nil {
		return nil, err
	}
	c := &Directory{
		Offset: -1,
		order:  d.order,
		values: make(map[Tag]Value, len(d.values)),
		filled: true,
	}
	for tag, v := range d.values {
		c.values[tag] = v
	}
	return c, nil
}

func (d *Directory) ensureFilled() error {
	if d.filled {
		return nil
	}
	if d.stream == nil {
		return ErrNotFilled
	}
	return d.Fill(d.stream)
}

func (d *Directory) ints(tag Tag) ([]int64, bool, error) {
	if err := d.ensureFilled(); err != nil {
		return nil, false, err
	}
	v, found := d.values[tag]
	if !found {
		return nil, false, nil
	}
	ints, ok := v.Ints()
	if !ok || len(ints) == 0 {
		return nil, false, planeio.NewError("read tag", planeio.ErrMalformed, "%s holds %s, not integers", tag, v.Kind())
	}
	return ints, true, nil
}

// requiredInts returns the integers of a tag that must be present.
func (d *Directory) requiredInts(tag Tag) ([]int64, error) {
	ints, found, err := d.ints(tag)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, planeio.NewError("read tag", planeio.ErrMalformed, "missing %s in directory at offset %d", tag, d.Offset)
	}
	return ints, nil
}

// firstInt returns the first integer of a tag, or def if the tag is absent.
func (d *Directory) firstInt(tag Tag, def int) (int, error) {
	ints, found, err := d.ints(tag)
	if err != nil || !found {
		return def, err
	}
	return int(ints[0]), nil
}

func (d *Directory) positiveInt(tag Tag) (int, error) {
	ints, err := d.requiredInts(tag)
	if err != nil {
		return 0, err
	}
	if ints[0] <= 0 || ints[0] > 1<<31-1 {
		return 0, planeio.NewError("read tag", planeio.ErrMalformed, "%s is %d", tag, ints[0])
	}
	return int(ints[0]), nil
}

func (d *Directory) ImageWidth() (int, error) {
	return d.positiveInt(ImageWidth)
}

func (d *Directory) ImageLength() (int, error) {
	return d.positiveInt(ImageLength)
}

// SamplesPerPixel defaults to 1.
func (d *Directory) SamplesPerPixel() (int, error) {
	n, err := d.firstInt(SamplesPerPixel, 1)
	if err == nil && n <= 0 {
		err = planeio.NewError("read tag", planeio.ErrMalformed, "%d samples per pixel", n)
	}
	return n, err
}

// BitsPerSample returns one value per sample.  A single stored value applies to every
// sample and an absent tag means 1 bit.
func (d *Directory) BitsPerSample() ([]int, error) {
	spp, err := d.SamplesPerPixel()
	if err != nil {
		return nil, err
	}
	ints, found, err := d.ints(BitsPerSample)
	if err != nil {
		return nil, err
	}
	bps := make([]int, spp)
	for i := range bps {
		switch {
		case !found:
			bps[i] = 1
		case i < len(ints):
			bps[i] = int(ints[i])
		default:
			bps[i] = int(ints[0])
		}
		if bps[i] <= 0 || bps[i] > 64 {
			return nil, planeio.NewError("read tag", planeio.ErrMalformed, "%d bits per sample", bps[i])
		}
	}
	return bps, nil
}

// Compression defaults to 1, no compression.
func (d *Directory) Compression() (int, error) {
	return d.firstInt(Compression, 1)
}

// SubfileType defaults to 0, a full resolution image.
func (d *Directory) SubfileType() (int, error) {
	return d.firstInt(NewSubfileType, 0)
}

// Photometric returns the PhotometricInterpretation, defaulting to BlackIsZero.
func (d *Directory) Photometric() (int, error) {
	return d.firstInt(PhotometricInterpretation, PhotometricBlackIsZero)
}

// PlanarConfig defaults to chunky storage.
func (d *Directory) PlanarConfig() (int, error) {
	pc, err := d.firstInt(PlanarConfiguration, PlanarChunky)
	if err == nil && pc != PlanarChunky && pc != PlanarPlanar {
		err = planeio.NewError("read tag", planeio.ErrMalformed, "planar configuration %d", pc)
	}
	return pc, err
}

// SampleFormat returns the format of the first sample, defaulting to unsigned integers.
func (d *Directory) SampleFormat() (int, error) {
	return d.firstInt(SampleFormat, SampleUint)
}

func (d *Directory) Predictor() (int, error) {
	return d.firstInt(Predictor, PredictorNone)
}

// RowsPerStrip defaults to the image length, i.e., a single strip.
func (d *Directory) RowsPerStrip() (int, error) {
	length, err := d.ImageLength()
	if err != nil {
		return 0, err
	}
	rps, err := d.firstInt(RowsPerStrip, length)
	if err != nil {
		return 0, err
	}
	if rps <= 0 || rps > length {
		rps = length
	}
	return rps, nil
}

// Tiled returns true if the directory stores tiles rather than strips.
func (d *Directory) Tiled() (bool, error) {
	if err := d.ensureFilled(); err != nil {
		return false, err
	}
	_, found := d.values[TileWidth]
	return found, nil
}

// TileWidth returns the width of a tile, or of a strip for strip-based directories.
func (d *Directory) TileWidth() (int, error) {
	tiled, err := d.Tiled()
	if err != nil {
		return 0, err
	}
	if !tiled {
		return d.ImageWidth()
	}
	return d.positiveInt(TileWidth)
}

// TileLength returns the length of a tile, or the rows per strip for strip-based
// directories.
func (d *Directory) TileLength() (int, error) {
	tiled, err := d.Tiled()
	if err != nil {
		return 0, err
	}
	if !tiled {
		return d.RowsPerStrip()
	}
	return d.positiveInt(TileLength)
}

func (d *Directory) StripOffsets() ([]int64, error) {
	return d.requiredInts(StripOffsets)
}

func (d *Directory) StripByteCounts() ([]int64, error) {
	return d.requiredInts(StripByteCounts)
}

func (d *Directory) TileOffsets() ([]int64, error) {
	return d.requiredInts(TileOffsets)
}

func (d *Directory) TileByteCounts() ([]int64, error) {
	return d.requiredInts(TileByteCounts)
}

// Offsets returns the tile or strip offsets, whichever the directory stores.
func (d *Directory) Offsets() ([]int64, error) {
	tiled, err := d.Tiled()
	if err != nil {
		return nil, err
	}
	if tiled {
		return d.TileOffsets()
	}
	return d.StripOffsets()
}

// ByteCounts returns the tile or strip byte counts, matching Offsets.
func (d *Directory) ByteCounts() ([]int64, error) {
	tiled, err := d.Tiled()
	if err != nil {
		return nil, err
	}
	if tiled {
		return d.TileByteCounts()
	}
	return d.StripByteCounts()
}

// PixelType returns the decoded pixel type of the first sample.  Floating point samples of
// 16 or 24 bits are widened to Float when decoded.
func (d *Directory) PixelType() (planeio.PixelType, error) {
	bps, err := d.BitsPerSample()
	if err != nil {
		return 0, err
	}
	format, err := d.SampleFormat()
	if err != nil {
		return 0, err
	}
	bits := bps[0]
	switch format {
	case SampleFloat:
		switch bits {
		case 16, 24, 32:
			return planeio.Float, nil
		case 64:
			return planeio.Double, nil
		}
		return 0, planeio.NewError("pixel type", planeio.ErrMalformed, "%d bit floating point samples", bits)
	case SampleInt:
		return planeio.PixelTypeFromBytes(sampleBytes(bits), true, false)
	default:
		return planeio.PixelTypeFromBytes(sampleBytes(bits), false, false)
	}
}

// sampleBytes returns the # of bytes an integer sample of the given bit depth is stored in.
func sampleBytes(bits int) int {
	switch {
	case bits <= 8:
		return 1
	case bits <= 16:
		return 2
	case bits <= 32:
		return 4
	}
	return 8
}

func (d *Directory) String() string {
	if d.Offset < 0 {
		return fmt.Sprintf("synthesized directory with %d tags", len(d.values))
	}
	return fmt.Sprintf("directory at offset %d with %d entries", d.Offset, len(d.entries))
}
