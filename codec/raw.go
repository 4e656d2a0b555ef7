package codec

import "github.com/janelia-flyem/planeio/planeio"

// Raw stores bytes unchanged.
type Raw struct{}

func (Raw) Name() string {
	return "raw"
}

func (Raw) Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (Raw) Decompress(s *planeio.Stream, opts Options) ([]byte, error) {
	n := s.Remaining()
	if opts.MaxBytes > 0 && int64(opts.MaxBytes) < n {
		n = int64(opts.MaxBytes)
	}
	return s.ReadFull(int(n))
}
