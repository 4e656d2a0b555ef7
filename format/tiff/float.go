package tiff

import "encoding/binary"

// narrowFloat is the bit layout of a non-standard floating point sample.
type narrowFloat struct {
	bytes        int
	mantissaBits uint
	exponentBits uint
}

var (
	float16 = narrowFloat{bytes: 2, mantissaBits: 10, exponentBits: 5}
	float24 = narrowFloat{bytes: 3, mantissaBits: 16, exponentBits: 7}
)

// widen returns the IEEE-754 single precision bits of a narrow sample.  The exponent is
// re-biased, an all-ones exponent maps to 255 and denormals are normalized.
func (f narrowFloat) widen(v uint32) uint32 {
	sign := v >> (uint(f.bytes)*8 - 1)
	maxExponent := int32(1)<<f.exponentBits - 1
	exponent := int32(v>>f.mantissaBits) & maxExponent
	mantissa := v & (1<<f.mantissaBits - 1)
	bias := 127 - (int32(1)<<(f.exponentBits-1) - 1)

	switch {
	case exponent == 0:
		if mantissa != 0 {
			for mantissa&(1<<f.mantissaBits) == 0 {
				mantissa <<= 1
				exponent--
			}
			exponent++
			mantissa &= 1<<f.mantissaBits - 1
			exponent += bias
		}
	case exponent == maxExponent:
		exponent = 255
	default:
		exponent += bias
	}
	mantissa <<= 23 - f.mantissaBits
	return sign<<31 | uint32(exponent)<<23 | mantissa
}

// widenFloats converts the 2 or 3 byte samples of src into 4 byte floats in dst, both in
// the given byte order.
func widenFloats(dst, src []byte, nBytes int, littleEndian bool) {
	f := float16
	if nBytes == 3 {
		f = float24
	}
	var order binary.ByteOrder = binary.BigEndian
	if littleEndian {
		order = binary.LittleEndian
	}
	for i := 0; i*nBytes+nBytes <= len(src) && i*4+4 <= len(dst); i++ {
		sample := src[i*nBytes : (i+1)*nBytes]
		var v uint32
		for j := 0; j < nBytes; j++ {
			if littleEndian {
				v |= uint32(sample[j]) << (8 * uint(j))
			} else {
				v = v<<8 | uint32(sample[j])
			}
		}
		order.PutUint32(dst[i*4:], f.widen(v))
	}
}
