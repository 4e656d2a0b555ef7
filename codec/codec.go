// Package codec implements the compression schemes of directory-addressed images behind
// one Compress/Decompress contract.
package codec

import (
	"fmt"
	"io"

	"github.com/janelia-flyem/planeio/planeio"
)

// Compression identifiers as stored in a directory's Compression tag.
const (
	CompressionNone       = 1
	CompressionLZW        = 5
	CompressionDeflate    = 8
	CompressionPackBits   = 32773
	CompressionOldDeflate = 32946
	CompressionJPEG2000   = 33003
	CompressionJPEG2000L  = 33004 // lossy JPEG-2000
	CompressionZstd       = 50000
)

// Options parameterizes one codec call.  It is passed by value and never modified.
type Options struct {
	Width         int
	Height        int
	Channels      int
	BitsPerSample int
	LittleEndian  bool
	Interleaved   bool

	// MaxBytes is the # of bytes expected from Decompress.  Decompression stops once it is
	// reached and never returns more.  Zero or negative means no limit.
	MaxBytes int

	// Previous is the previously decoded plane for codecs that predict across planes.
	Previous []byte

	// Resolution is the resolution index requested from multi-resolution codecs.
	Resolution int
}

// DefaultOptions returns big-endian, non-interleaved options with no byte limit.
func DefaultOptions() Options {
	return Options{Channels: 1, BitsPerSample: 8}
}

// Codec is one compression scheme.  Schemes that cannot encode return an
// ErrUnsupportedCodec error from Compress rather than passing data through.
type Codec interface {
	Name() string

	// Compress encodes a width x height block of data whose full dimensions are dims.
	Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error)

	// Decompress decodes from the current position of s until opts.MaxBytes bytes are
	// produced or s is exhausted, whichever comes first.
	Decompress(s *planeio.Stream, opts Options) ([]byte, error)
}

var codecs = map[int]Codec{
	CompressionNone:       Raw{},
	CompressionLZW:        LZW{},
	CompressionDeflate:    Deflate{},
	CompressionOldDeflate: Deflate{},
	CompressionPackBits:   PackBits{},
	CompressionJPEG2000:   JPEG2000{},
	CompressionJPEG2000L:  JPEG2000{},
	CompressionZstd:       Zstd{},
}

// ForCompression returns the codec for a directory's compression identifier.
func ForCompression(id int) (Codec, error) {
	c, found := codecs[id]
	if !found {
		return nil, planeio.NewError("select codec", planeio.ErrUnsupportedCodec, "unknown compression %d", id)
	}
	return c, nil
}

// IsJPEG2000 returns true for the compression identifiers whose chunks embed resolution
// levels.
func IsJPEG2000(id int) bool {
	return id == CompressionJPEG2000 || id == CompressionJPEG2000L
}

func unsupported(name, op string) error {
	return planeio.NewError(op, planeio.ErrUnsupportedCodec, "%s %s not supported", name, op)
}

// readLimited reads a decoder's output until maxBytes, if positive, or the end of data.
func readLimited(name string, r io.Reader, maxBytes int) ([]byte, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, int64(maxBytes))
	}
	out, err := io.ReadAll(r)
	if err == io.ErrUnexpectedEOF {
		return nil, planeio.NewError("decompress", planeio.ErrMalformed, "truncated %s data after %d bytes", name, len(out))
	}
	if err != nil {
		return nil, fmt.Errorf("%s decompression: %w", name, err)
	}
	return out, nil
}
