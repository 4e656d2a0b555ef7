package codec

import (
	"encoding/binary"

	"github.com/janelia-flyem/planeio/planeio"
)

// JPEG-2000 codestream markers.
const (
	markerSOC = 0xFF4F
	markerSOT = 0xFF90
	markerSIZ = 0xFF51
	markerCOD = 0xFF52
	markerSOD = 0xFF93
	markerEOC = 0xFFD9
)

const (
	jp2BoxSignature  = 0x6A502020 // "jP  "
	jp2BoxCodestream = 0x6A703263 // "jp2c"
)

// JPEG2000 covers TIFF compressions 33003 and 33004.  Only the main header is read, to
// learn how many resolution levels each chunk carries; pixel data cannot be decoded.
type JPEG2000 struct{}

func (JPEG2000) Name() string {
	return "JPEG-2000"
}

func (c JPEG2000) Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error) {
	return nil, unsupported(c.Name(), "compression")
}

func (c JPEG2000) Decompress(s *planeio.Stream, opts Options) ([]byte, error) {
	return nil, unsupported(c.Name(), "decompression")
}

// ResolutionLevels returns the # of wavelet decomposition levels declared by the COD
// segment of a JPEG-2000 main header.  The data may be a raw codestream or a JP2 file and
// may be truncated after the main header.  The second result is false if no COD segment is
// present before the first tile.
func ResolutionLevels(data []byte) (int, bool, error) {
	if len(data) >= 12 && binary.BigEndian.Uint32(data[4:8]) == jp2BoxSignature {
		cs, found := findCodestream(data)
		if !found {
			return 0, false, nil
		}
		data = cs
	}
	if len(data) < 2 || binary.BigEndian.Uint16(data) != markerSOC {
		return 0, false, planeio.NewError("parse JPEG-2000 header", planeio.ErrMalformed, "missing SOC marker")
	}
	pos := 2
	for pos+4 <= len(data) {
		marker := binary.BigEndian.Uint16(data[pos:])
		pos += 2
		switch marker {
		case markerSOT, markerSOD, markerEOC:
			return 0, false, nil
		case markerCOD:
			// Lcod(2) Scod(1) SGcod(4) then SPcod starting with the decomposition levels.
			if pos+8 > len(data) {
				return 0, false, planeio.NewError("parse JPEG-2000 header", planeio.ErrMalformed, "truncated COD segment")
			}
			levels := int(data[pos+7])
			if levels > 32 {
				return 0, false, planeio.NewError("parse JPEG-2000 header", planeio.ErrMalformed, "%d decomposition levels", levels)
			}
			return levels, true, nil
		}
		if marker>>8 != 0xFF {
			return 0, false, planeio.NewError("parse JPEG-2000 header", planeio.ErrMalformed, "bad marker %04x at %d", marker, pos-2)
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 {
			return 0, false, planeio.NewError("parse JPEG-2000 header", planeio.ErrMalformed, "segment length %d", segLen)
		}
		pos += segLen
	}
	return 0, false, nil
}

// findCodestream walks the top-level JP2 boxes and returns the contents of the codestream
// box, which may extend past the end of data.
func findCodestream(data []byte) ([]byte, bool) {
	for pos := 0; pos+8 <= len(data); {
		boxLen := uint64(binary.BigEndian.Uint32(data[pos:]))
		boxType := binary.BigEndian.Uint32(data[pos+4:])
		headerLen := uint64(8)
		switch boxLen {
		case 0:
			boxLen = uint64(len(data) - pos)
		case 1:
			if pos+16 > len(data) {
				return nil, false
			}
			boxLen = binary.BigEndian.Uint64(data[pos+8:])
			headerLen = 16
		}
		if boxLen < headerLen {
			return nil, false
		}
		if boxType == jp2BoxCodestream {
			return data[pos+int(headerLen):], true
		}
		if boxLen > uint64(len(data)-pos) {
			return nil, false
		}
		pos += int(boxLen)
	}
	return nil, false
}
