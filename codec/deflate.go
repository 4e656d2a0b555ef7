package codec

import (
	"bytes"

	"github.com/klauspost/compress/zlib"

	"github.com/janelia-flyem/planeio/planeio"
)

// Deflate handles zlib-wrapped deflate data, TIFF compressions 8 and 32946.
type Deflate struct{}

func (Deflate) Name() string {
	return "Deflate"
}

func (Deflate) Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Deflate) Decompress(s *planeio.Stream, opts Options) ([]byte, error) {
	zr, err := zlib.NewReader(s)
	if err != nil {
		return nil, planeio.NewError("decompress", planeio.ErrMalformed, "bad zlib header: %v", err)
	}
	defer zr.Close()
	return readLimited(c.Name(), zr, opts.MaxBytes)
}
