/*
   This file handles pixel types and their layout in decoded plane buffers.
*/

package planeio

import (
	"encoding/json"
	"fmt"
)

// PixelType is the numeric type of one sample of one channel.
type PixelType uint8

const (
	Uint8 PixelType = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float
	Double
)

var typeBytes = map[PixelType]int{
	Uint8:  1,
	Int8:   1,
	Uint16: 2,
	Int16:  2,
	Uint32: 4,
	Int32:  4,
	Float:  4,
	Double: 8,
}

var typeNames = map[PixelType]string{
	Uint8:  "uint8",
	Int8:   "int8",
	Uint16: "uint16",
	Int16:  "int16",
	Uint32: "uint32",
	Int32:  "int32",
	Float:  "float",
	Double: "double",
}

// BytesPerPixel returns the # of bytes one sample of the type occupies in a decoded plane.
func (t PixelType) BytesPerPixel() int {
	return typeBytes[t]
}

// Signed returns true for the signed integer and floating point types.
func (t PixelType) Signed() bool {
	switch t {
	case Int8, Int16, Int32, Float, Double:
		return true
	}
	return false
}

// FloatingPoint returns true for Float and Double.
func (t PixelType) FloatingPoint() bool {
	return t == Float || t == Double
}

func (t PixelType) String() string {
	if name, found := typeNames[t]; found {
		return name
	}
	return fmt.Sprintf("unknown pixel type %d", uint8(t))
}

// MarshalJSON implements the json.Marshaler interface.
func (t PixelType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// PixelTypeFromBytes returns the pixel type with the given # of bytes per sample.
func PixelTypeFromBytes(numBytes int, signed, fp bool) (PixelType, error) {
	switch numBytes {
	case 1:
		if signed {
			return Int8, nil
		}
		return Uint8, nil
	case 2:
		if signed {
			return Int16, nil
		}
		return Uint16, nil
	case 4:
		if fp {
			return Float, nil
		}
		if signed {
			return Int32, nil
		}
		return Uint32, nil
	case 8:
		if fp {
			return Double, nil
		}
	}
	return 0, fmt.Errorf("%w: no pixel type with %d bytes (signed %t, float %t)", ErrMalformed, numBytes, signed, fp)
}
