package codec

import (
	"golang.org/x/image/tiff/lzw"

	"github.com/janelia-flyem/planeio/planeio"
)

// LZW decodes TIFF compression 5, MSB first with 8-bit literals.
type LZW struct{}

func (LZW) Name() string {
	return "LZW"
}

func (c LZW) Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error) {
	return nil, unsupported(c.Name(), "compression")
}

func (c LZW) Decompress(s *planeio.Stream, opts Options) ([]byte, error) {
	r := lzw.NewReader(s, lzw.MSB, 8)
	defer r.Close()
	return readLimited(c.Name(), r, opts.MaxBytes)
}
