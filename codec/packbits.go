package codec

import (
	"bytes"
	"io"

	"github.com/janelia-flyem/planeio/planeio"
)

// PackBits is the byte-oriented run-length scheme of TIFF compression 32773.
type PackBits struct{}

func (PackBits) Name() string {
	return "PackBits"
}

// Decompress reads signed control bytes n: 0..127 copies the next n+1 bytes, -127..-1
// repeats the next byte 1-n times and -128 is skipped.
func (PackBits) Decompress(s *planeio.Stream, opts Options) ([]byte, error) {
	var out bytes.Buffer
	full := func() bool {
		return opts.MaxBytes > 0 && out.Len() >= opts.MaxBytes
	}
	for !full() && s.Remaining() > 0 {
		c, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		n := int8(c)
		switch {
		case n >= 0:
			literal, err := s.ReadFull(int(min(int64(n)+1, s.Remaining())))
			if err != nil {
				return nil, err
			}
			out.Write(literal)
		case n != -128:
			b, err := s.ReadByte()
			if err == io.EOF {
				return truncate(out.Bytes(), opts.MaxBytes), nil
			}
			if err != nil {
				return nil, err
			}
			for i := 0; i < 1-int(n); i++ {
				out.WriteByte(b)
			}
		}
	}
	return truncate(out.Bytes(), opts.MaxBytes), nil
}

func truncate(b []byte, maxBytes int) []byte {
	if maxBytes > 0 && len(b) > maxBytes {
		return b[:maxBytes]
	}
	return b
}

// Compress encodes each row of width*channels samples separately so no run crosses a row
// boundary.
func (PackBits) Compress(data []byte, width, height int, dims []int, opts Options) ([]byte, error) {
	rowBytes := len(data)
	if height > 0 && len(data)%height == 0 {
		rowBytes = len(data) / height
	}
	var out bytes.Buffer
	for start := 0; start < len(data); start += rowBytes {
		packRow(&out, data[start:min(start+rowBytes, len(data))])
	}
	return out.Bytes(), nil
}

func packRow(out *bytes.Buffer, row []byte) {
	const maxRun = 128
	for i := 0; i < len(row); {
		// Count the run starting at i.
		run := 1
		for i+run < len(row) && run < maxRun && row[i+run] == row[i] {
			run++
		}
		if run >= 2 {
			out.WriteByte(byte(int8(1 - run)))
			out.WriteByte(row[i])
			i += run
			continue
		}
		// Gather literals until the next run of at least 3 identical bytes.
		j := i
		for j < len(row) && j-i < maxRun {
			if j+2 < len(row) && row[j] == row[j+1] && row[j] == row[j+2] {
				break
			}
			j++
		}
		if j == i {
			j = i + 1
		}
		out.WriteByte(byte(j - i - 1))
		out.Write(row[i:j])
		i = j
	}
}
