// Package ifdtest builds small TIFF and BigTIFF containers in memory for tests.
package ifdtest

import (
	"encoding/binary"
	"sort"
)

type endianness interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type entry struct {
	tag     uint16
	typ     uint16
	count   uint64
	payload []byte
}

// Builder accumulates directories and serializes them into one container.
type Builder struct {
	order   endianness
	bigTIFF bool
	dirs    []*Dir
	loopTo  int
}

// Dir is one directory under construction.
type Dir struct {
	b       *Builder
	entries []entry
	chunks  [][]byte
	tiled   bool
}

func New(littleEndian bool) *Builder {
	b := &Builder{order: binary.BigEndian, loopTo: -1}
	if littleEndian {
		b.order = binary.LittleEndian
	}
	return b
}

// BigTIFF switches the container to the 64-bit layout.
func (b *Builder) BigTIFF() *Builder {
	b.bigTIFF = true
	return b
}

// LoopTo links the last directory back to directory i.
func (b *Builder) LoopTo(i int) *Builder {
	b.loopTo = i
	return b
}

func (b *Builder) AddDirectory() *Dir {
	d := &Dir{b: b}
	b.dirs = append(b.dirs, d)
	return d
}

// Raw adds an entry whose payload is already laid out in the container's byte order.
func (d *Dir) Raw(tag, typ uint16, count uint64, payload []byte) *Dir {
	d.entries = append(d.entries, entry{tag, typ, count, payload})
	return d
}

func (d *Dir) Short(tag uint16, values ...uint16) *Dir {
	var p []byte
	for _, v := range values {
		p = d.b.order.AppendUint16(p, v)
	}
	return d.Raw(tag, 3, uint64(len(values)), p)
}

func (d *Dir) Long(tag uint16, values ...uint32) *Dir {
	var p []byte
	for _, v := range values {
		p = d.b.order.AppendUint32(p, v)
	}
	return d.Raw(tag, 4, uint64(len(values)), p)
}

func (d *Dir) Long8(tag uint16, values ...uint64) *Dir {
	var p []byte
	for _, v := range values {
		p = d.b.order.AppendUint64(p, v)
	}
	return d.Raw(tag, 16, uint64(len(values)), p)
}

func (d *Dir) Rational(tag uint16, num, den uint32) *Dir {
	p := d.b.order.AppendUint32(nil, num)
	p = d.b.order.AppendUint32(p, den)
	return d.Raw(tag, 5, 1, p)
}

func (d *Dir) ASCII(tag uint16, s string) *Dir {
	p := append([]byte(s), 0)
	return d.Raw(tag, 2, uint64(len(p)), p)
}

// Strips stores the chunks and adds StripOffsets and StripByteCounts for them.
func (d *Dir) Strips(chunks ...[]byte) *Dir {
	d.chunks = chunks
	d.tiled = false
	return d
}

// Tiles stores the chunks and adds TileOffsets and TileByteCounts for them.
func (d *Dir) Tiles(chunks ...[]byte) *Dir {
	d.chunks = chunks
	d.tiled = true
	return d
}

func (b *Builder) uint(buf []byte, v uint64) []byte {
	if b.bigTIFF {
		return b.order.AppendUint64(buf, v)
	}
	return b.order.AppendUint32(buf, uint32(v))
}

func (b *Builder) putUint(buf []byte, v uint64) {
	if b.bigTIFF {
		b.order.PutUint64(buf, v)
	} else {
		b.order.PutUint32(buf, uint32(v))
	}
}

// Bytes serializes the container: header, then for each directory its chunks, its
// out-of-line values and finally its entries.
func (b *Builder) Bytes() []byte {
	var buf []byte
	if b.order == binary.LittleEndian {
		buf = append(buf, 'I', 'I')
	} else {
		buf = append(buf, 'M', 'M')
	}
	fieldLen := 4
	if b.bigTIFF {
		fieldLen = 8
		buf = b.order.AppendUint16(buf, 43)
		buf = b.order.AppendUint16(buf, 8)
		buf = b.order.AppendUint16(buf, 0)
	} else {
		buf = b.order.AppendUint16(buf, 42)
	}
	linkPos := len(buf)
	buf = b.uint(buf, 0)

	var ifdOffsets []int
	for _, d := range b.dirs {
		entries := append([]entry(nil), d.entries...)
		if len(d.chunks) != 0 {
			var offsets, counts []uint64
			for _, c := range d.chunks {
				offsets = append(offsets, uint64(len(buf)))
				counts = append(counts, uint64(len(c)))
				buf = append(buf, c...)
			}
			offsetTag, countTag := uint16(273), uint16(279)
			if d.tiled {
				offsetTag, countTag = 324, 325
			}
			entries = append(entries, b.uintEntry(offsetTag, offsets), b.uintEntry(countTag, counts))
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

		fields := make([][]byte, len(entries))
		for i, e := range entries {
			field := make([]byte, fieldLen)
			if len(e.payload) <= fieldLen {
				copy(field, e.payload)
			} else {
				if len(buf)%2 == 1 {
					buf = append(buf, 0)
				}
				b.putUint(field, uint64(len(buf)))
				buf = append(buf, e.payload...)
			}
			fields[i] = field
		}
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}

		ifdOffsets = append(ifdOffsets, len(buf))
		b.putUint(buf[linkPos:], uint64(len(buf)))
		if b.bigTIFF {
			buf = b.order.AppendUint64(buf, uint64(len(entries)))
		} else {
			buf = b.order.AppendUint16(buf, uint16(len(entries)))
		}
		for i, e := range entries {
			buf = b.order.AppendUint16(buf, e.tag)
			buf = b.order.AppendUint16(buf, e.typ)
			if b.bigTIFF {
				buf = b.order.AppendUint64(buf, e.count)
			} else {
				buf = b.order.AppendUint32(buf, uint32(e.count))
			}
			buf = append(buf, fields[i]...)
		}
		linkPos = len(buf)
		buf = b.uint(buf, 0)
	}
	if b.loopTo >= 0 && b.loopTo < len(ifdOffsets) {
		b.putUint(buf[linkPos:], uint64(ifdOffsets[b.loopTo]))
	}
	return buf
}

func (b *Builder) uintEntry(tag uint16, values []uint64) entry {
	var p []byte
	for _, v := range values {
		p = b.uint(p, v)
	}
	typ := uint16(4)
	if b.bigTIFF {
		typ = 16
	}
	return entry{tag, typ, uint64(len(values)), p}
}
