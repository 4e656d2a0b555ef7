package codec

import (
	"encoding/binary"

	"github.com/janelia-flyem/planeio/planeio"
)

// UndoHorizontalPredictor reverses TIFF predictor 2 in place.  buf holds whole rows of
// opts.Width pixels; each sample is stored as the difference from the same channel of the
// previous pixel in the row.  opts.Channels counts the samples interleaved per pixel.
func UndoHorizontalPredictor(buf []byte, opts Options) error {
	channels := max(opts.Channels, 1)
	bytesPerSample := (opts.BitsPerSample + 7) / 8
	rowBytes := opts.Width * channels * bytesPerSample
	if rowBytes <= 0 {
		return planeio.NewError("undo predictor", planeio.ErrMalformed, "row of %d bytes", rowBytes)
	}
	var order binary.ByteOrder = binary.BigEndian
	if opts.LittleEndian {
		order = binary.LittleEndian
	}
	for start := 0; start+rowBytes <= len(buf); start += rowBytes {
		row := buf[start : start+rowBytes]
		switch bytesPerSample {
		case 1:
			for i := channels; i < len(row); i++ {
				row[i] += row[i-channels]
			}
		case 2:
			for i := channels * 2; i < len(row); i += 2 {
				order.PutUint16(row[i:], order.Uint16(row[i:])+order.Uint16(row[i-2*channels:]))
			}
		case 4:
			for i := channels * 4; i < len(row); i += 4 {
				order.PutUint32(row[i:], order.Uint32(row[i:])+order.Uint32(row[i-4*channels:]))
			}
		default:
			return planeio.NewError("undo predictor", planeio.ErrUnsupportedCodec, "predictor on %d bit samples", opts.BitsPerSample)
		}
	}
	return nil
}
