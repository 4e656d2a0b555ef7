package codec

import (
	"github.com/klauspost/compress/zstd"

	"github.com/janelia-flyem/planeio/planeio"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Zstd handles Zstandard frames, TIFF compression 50000.
type Zstd struct{}

func (Zstd) Name() string {
	return "Zstd"
}

func (Zstd) Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error) {
	return zstdEncoder.EncodeAll(data, nil), nil
}

// Decompress decodes every frame between the current position and the end of s.
func (Zstd) Decompress(s *planeio.Stream, opts Options) ([]byte, error) {
	frames, err := s.ReadFull(int(s.Remaining()))
	if err != nil {
		return nil, err
	}
	out, err := zstdDecoder.DecodeAll(frames, nil)
	if err != nil {
		return nil, planeio.NewError("decompress", planeio.ErrMalformed, "zstd: %v", err)
	}
	return truncate(out, opts.MaxBytes), nil
}
