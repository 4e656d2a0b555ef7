package ifd

import (
	"github.com/janelia-flyem/planeio/codec"
	"github.com/janelia-flyem/planeio/planeio"
)

const (
	classicMagic = 42
	bigTIFFMagic = 43

	classicEntryLen = 12
	bigTIFFEntryLen = 20

	// maxHeaderBytes bounds how much of a JPEG-2000 chunk is read looking for its main header.
	maxHeaderBytes = 4 << 20
)

// Parser reads the directories of a TIFF or BigTIFF container.
type Parser struct {
	s        *planeio.Stream
	bigTIFF  bool
	checked  bool
	firstIFD int64
}

func NewParser(s *planeio.Stream) *Parser {
	return &Parser{s: s}
}

// BigTIFF returns true if CheckHeader found a BigTIFF header.
func (p *Parser) BigTIFF() bool {
	return p.bigTIFF
}

// CheckHeader verifies the byte order mark and magic number at the start of the container
// and sets the stream's byte order.
func (p *Parser) CheckHeader() (littleEndian bool, err error) {
	if err = p.s.Seek(0); err != nil {
		return
	}
	head, err := p.s.Peek(16)
	if err != nil {
		return
	}
	if len(head) < 8 {
		return false, planeio.NewError("check header", planeio.ErrMalformed, "%d byte container too short", len(head))
	}
	switch string(head[0:2]) {
	case "II":
		littleEndian = true
	case "MM":
	default:
		return false, planeio.NewError("check header", planeio.ErrMalformed, "bad byte order mark %q", head[0:2])
	}
	p.s.SetOrder(littleEndian)
	order := p.s.Order()
	switch order.Uint16(head[2:4]) {
	case classicMagic:
		p.firstIFD = int64(order.Uint32(head[4:8]))
	case bigTIFFMagic:
		if len(head) < 16 || order.Uint16(head[4:6]) != 8 {
			return false, planeio.NewError("check header", planeio.ErrMalformed, "bad BigTIFF header")
		}
		p.bigTIFF = true
		p.firstIFD = int64(order.Uint64(head[8:16]))
	default:
		return false, planeio.NewError("check header", planeio.ErrMalformed, "bad magic number %d", order.Uint16(head[2:4]))
	}
	p.checked = true
	return littleEndian, nil
}

// Directories follows the chain of directories from the header until a zero link.  The
// returned directories are unfilled.
func (p *Parser) Directories() (List, error) {
	if !p.checked {
		if _, err := p.CheckHeader(); err != nil {
			return nil, err
		}
	}
	var list List
	visited := make(map[int64]bool)
	for offset := p.firstIFD; offset != 0; {
		if visited[offset] {
			return nil, planeio.NewError("read directories", planeio.ErrMalformed, "directory loop at offset %d", offset)
		}
		visited[offset] = true
		d, next, err := p.directoryAt(offset)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
		offset = next
	}
	if len(list) == 0 {
		return nil, planeio.NewError("read directories", planeio.ErrMalformed, "no directories in %s", p.s.Name())
	}
	planeio.Debugf("Read %d directories from %s (BigTIFF %t)\n", len(list), p.s.Name(), p.bigTIFF)
	return list, nil
}

// FirstDirectory reads only the directory the header points to.  It is unfilled.
func (p *Parser) FirstDirectory() (*Directory, error) {
	if !p.checked {
		if _, err := p.CheckHeader(); err != nil {
			return nil, err
		}
	}
	if p.firstIFD == 0 {
		return nil, planeio.NewError("read directory", planeio.ErrMalformed, "no directories in %s", p.s.Name())
	}
	d, _, err := p.directoryAt(p.firstIFD)
	return d, err
}

// directoryAt reads the entry count, the raw entries and the next directory link at offset.
func (p *Parser) directoryAt(offset int64) (*Directory, int64, error) {
	if err := p.s.Seek(offset); err != nil {
		return nil, 0, err
	}
	var numEntries uint64
	entryLen, fieldLen := classicEntryLen, 4
	if p.bigTIFF {
		entryLen, fieldLen = bigTIFFEntryLen, 8
		n, err := p.s.ReadUint64()
		if err != nil {
			return nil, 0, err
		}
		numEntries = n
	} else {
		n, err := p.s.ReadUint16()
		if err != nil {
			return nil, 0, err
		}
		numEntries = uint64(n)
	}
	if avail := p.s.Remaining() - int64(fieldLen); avail < 0 || numEntries > uint64(avail)/uint64(entryLen) {
		return nil, 0, planeio.NewError("read directory", planeio.ErrMalformed,
			"%d entries at offset %d exceed %d byte container", numEntries, offset, p.s.Length())
	}

	// All entries are read in one chunk.
	buf, err := p.s.ReadFull(int(numEntries) * entryLen)
	if err != nil {
		return nil, 0, err
	}
	order := p.s.Order()
	entries := make([]Entry, numEntries)
	for i := range entries {
		b := buf[i*entryLen : (i+1)*entryLen]
		e := Entry{
			Tag:  Tag(order.Uint16(b[0:2])),
			Type: DataType(order.Uint16(b[2:4])),
		}
		if p.bigTIFF {
			e.Count = order.Uint64(b[4:12])
			e.Raw = b[12:20]
		} else {
			e.Count = uint64(order.Uint32(b[4:8]))
			e.Raw = b[8:12]
		}
		entries[i] = e
	}

	var next int64
	if p.bigTIFF {
		v, err := p.s.ReadUint64()
		if err != nil {
			return nil, 0, err
		}
		next = int64(v)
	} else {
		v, err := p.s.ReadUint32()
		if err != nil {
			return nil, 0, err
		}
		next = int64(v)
	}
	if next < 0 || next >= p.s.Length() {
		planeio.Warningf("Ignoring next directory link %d beyond end of %s\n", next, p.s.Name())
		next = 0
	}
	return newDeferred(p.s, offset, entries), next, nil
}

// ResolutionLevels returns the # of resolution levels embedded in the first chunk of a
// JPEG-2000 compressed directory.  The second result is false for other compressions or
// when the chunk does not declare levels.
func (p *Parser) ResolutionLevels(d *Directory) (int, bool, error) {
	compression, err := d.Compression()
	if err != nil {
		return 0, false, err
	}
	if !codec.IsJPEG2000(compression) {
		return 0, false, nil
	}
	offsets, err := d.Offsets()
	if err != nil {
		return 0, false, err
	}
	counts, err := d.ByteCounts()
	if err != nil {
		return 0, false, err
	}
	if len(counts) == 0 || counts[0] <= 0 {
		return 0, false, planeio.NewError("resolution levels", planeio.ErrMalformed, "empty first chunk in %s", d)
	}
	if err := p.s.Seek(offsets[0]); err != nil {
		return 0, false, err
	}
	n := min(counts[0], p.s.Remaining(), maxHeaderBytes)
	header, err := p.s.ReadFull(int(n))
	if err != nil {
		return 0, false, err
	}
	levels, found, err := codec.ResolutionLevels(header)
	if err != nil {
		return 0, false, planeio.WrapError("resolution levels", err)
	}
	if found {
		planeio.Debugf("%s declares %d JPEG-2000 resolution levels\n", d, levels)
	}
	return levels, found, nil
}
