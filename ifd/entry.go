package ifd

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/janelia-flyem/planeio/planeio"
)

// Entry is one raw directory entry as laid out on disk.  Its value is deferred until the
// owning directory is filled.
type Entry struct {
	Tag   Tag
	Type  DataType
	Count uint64

	// Raw holds the 4 (classic) or 8 (BigTIFF) byte value-or-offset field.
	Raw []byte
}

func (e Entry) String() string {
	return fmt.Sprintf("%s type %d count %d", e.Tag, e.Type, e.Count)
}

// dataLen returns the # of bytes of the entry's values.
func (e Entry) dataLen() (uint64, error) {
	size := lengths[e.Type]
	if size == 0 {
		return 0, planeio.NewError("read entry", planeio.ErrMalformed, "%s has unknown data type %d", e.Tag, e.Type)
	}
	if e.Count > math.MaxInt32/size {
		return 0, planeio.NewError("read entry", planeio.ErrMalformed, "%s declares %d values of %d bytes", e.Tag, e.Count, size)
	}
	return e.Count * size, nil
}

// inline returns true if the values fit within the value-or-offset field.
func (e Entry) inline(n uint64) bool {
	return n <= uint64(len(e.Raw))
}

// offset returns the out-of-line location of the entry's values.
func (e Entry) offset(order binary.ByteOrder) int64 {
	if len(e.Raw) == 8 {
		return int64(order.Uint64(e.Raw))
	}
	return int64(order.Uint32(e.Raw))
}

// decodeValue converts the raw bytes of an entry into its typed value.
func decodeValue(e Entry, raw []byte, order binary.ByteOrder) (Value, error) {
	size := int(lengths[e.Type])
	count := int(e.Count)
	if len(raw) < size*count {
		return Value{}, planeio.NewError("decode entry", planeio.ErrMalformed, "%s needs %d bytes, have %d", e.Tag, size*count, len(raw))
	}
	switch e.Type {
	case DTByte:
		ints := make([]int64, count)
		for i := range ints {
			ints[i] = int64(raw[i])
		}
		return NewInts(ints...), nil
	case DTSByte:
		ints := make([]int64, count)
		for i := range ints {
			ints[i] = int64(int8(raw[i]))
		}
		return NewInts(ints...), nil
	case DTShort, DTSShort:
		ints := make([]int64, count)
		for i := range ints {
			v := order.Uint16(raw[2*i:])
			if e.Type == DTSShort {
				ints[i] = int64(int16(v))
			} else {
				ints[i] = int64(v)
			}
		}
		return NewInts(ints...), nil
	case DTLong, DTSLong, DTIFD:
		ints := make([]int64, count)
		for i := range ints {
			v := order.Uint32(raw[4*i:])
			if e.Type == DTSLong {
				ints[i] = int64(int32(v))
			} else {
				ints[i] = int64(v)
			}
		}
		return NewInts(ints...), nil
	case DTLong8, DTSLong8, DTIFD8:
		ints := make([]int64, count)
		for i := range ints {
			v := order.Uint64(raw[8*i:])
			if e.Type != DTSLong8 && v > math.MaxInt64 {
				return Value{}, planeio.NewError("decode entry", planeio.ErrMalformed, "%s value %d overflows", e.Tag, v)
			}
			ints[i] = int64(v)
		}
		return NewInts(ints...), nil
	case DTRational, DTSRational:
		rats := make([]Rational, count)
		for i := range rats {
			num, den := order.Uint32(raw[8*i:]), order.Uint32(raw[8*i+4:])
			if e.Type == DTSRational {
				rats[i] = Rational{int64(int32(num)), int64(int32(den))}
			} else {
				rats[i] = Rational{int64(num), int64(den)}
			}
		}
		return NewRationals(rats...), nil
	case DTASCII:
		return NewString(strings.TrimRight(string(raw[:count]), "\x00")), nil
	case DTUndefined, DTFloat, DTDouble:
		blob := make([]byte, size*count)
		copy(blob, raw)
		return NewBytes(blob), nil
	}
	return Value{}, planeio.NewError("decode entry", planeio.ErrMalformed, "%s has unknown data type %d", e.Tag, e.Type)
}
