package format

import (
	"io"

	"github.com/janelia-flyem/planeio/planeio"
)

// ReadPlane copies the r window of an uncompressed plane starting at offset into buf,
// one channel after another.  If interleaved is true the channels of each pixel are
// adjacent on disk; otherwise each channel is stored as a complete plane.  Only the rows
// that intersect the window are read.
func ReadPlane(s *planeio.Stream, offset int64, m planeio.CoreMetadata, interleaved bool, r planeio.Rect, buf []byte) error {
	bpp := m.PixelType.BytesPerPixel()
	channels := m.RGBChannelCount()
	if end := offset + int64(m.PlaneSize()); end > s.Length() {
		return planeio.NewError("read plane", planeio.ErrMalformed, "plane at %d needs %d bytes, %s holds %d", offset, m.PlaneSize(), s.Name(), s.Length())
	}
	outRow := r.W * bpp
	outChannel := outRow * r.H
	if !interleaved {
		rowBytes := int64(m.SizeX * bpp)
		channelBytes := rowBytes * int64(m.SizeY)
		for c := 0; c < channels; c++ {
			start := offset + int64(c)*channelBytes + int64(r.Y)*rowBytes
			if r.X == 0 && r.W == m.SizeX {
				// Full rows are contiguous on disk.
				if err := readAt(s, start, buf[c*outChannel:(c+1)*outChannel]); err != nil {
					return err
				}
				continue
			}
			for y := 0; y < r.H; y++ {
				pos := start + int64(y)*rowBytes + int64(r.X*bpp)
				dst := buf[c*outChannel+y*outRow : c*outChannel+(y+1)*outRow]
				if err := readAt(s, pos, dst); err != nil {
					return err
				}
			}
		}
		return nil
	}

	pixel := bpp * channels
	rowBytes := int64(m.SizeX * pixel)
	row := make([]byte, r.W*pixel)
	for y := 0; y < r.H; y++ {
		pos := offset + int64(r.Y+y)*rowBytes + int64(r.X*pixel)
		if err := readAt(s, pos, row); err != nil {
			return err
		}
		for x := 0; x < r.W; x++ {
			for c := 0; c < channels; c++ {
				src := row[x*pixel+c*bpp : x*pixel+(c+1)*bpp]
				copy(buf[c*outChannel+y*outRow+x*bpp:], src)
			}
		}
	}
	return nil
}

func readAt(s *planeio.Stream, pos int64, dst []byte) error {
	if err := s.Seek(pos); err != nil {
		return err
	}
	_, err := io.ReadFull(s, dst)
	return err
}
