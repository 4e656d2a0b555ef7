/*
	This file provides the random-access stream all containers are read through.
*/

package planeio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Stream is a positioned, length-aware reader over a container with a current byte order.
// A Stream is not safe for concurrent use; each session owns exactly one.
type Stream struct {
	rs     io.ReadSeeker
	closer io.Closer
	name   string
	length int64
	pos    int64
	order  binary.ByteOrder
}

// NewStream wraps a seekable reader.  If rs is also an io.Closer, Close closes it.
func NewStream(name string, rs io.ReadSeeker) (*Stream, error) {
	length, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	s := &Stream{rs: rs, name: name, length: length, order: binary.BigEndian}
	if c, ok := rs.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// NewBytesStream returns a stream over an in-memory container.
func NewBytesStream(name string, data []byte) *Stream {
	return &Stream{
		rs:     bytes.NewReader(data),
		name:   name,
		length: int64(len(data)),
		order:  binary.BigEndian,
	}
}

// OpenFile opens the named file as a stream.
func OpenFile(filename string) (*Stream, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	s, err := NewStream(filepath.Base(filename), f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stream) Name() string {
	return s.name
}

// Length returns the total # of bytes in the stream.
func (s *Stream) Length() int64 {
	return s.length
}

// Pos returns the current offset.
func (s *Stream) Pos() int64 {
	return s.pos
}

// Remaining returns the # of bytes between the current offset and the end.
func (s *Stream) Remaining() int64 {
	return s.length - s.pos
}

// Order returns the byte order used by the typed reads.
func (s *Stream) Order() binary.ByteOrder {
	return s.order
}

// SetOrder selects little-endian (true) or big-endian (false) typed reads.
func (s *Stream) SetOrder(littleEndian bool) {
	if littleEndian {
		s.order = binary.LittleEndian
	} else {
		s.order = binary.BigEndian
	}
}

// LittleEndian returns true if typed reads are little-endian.
func (s *Stream) LittleEndian() bool {
	return s.order == binary.LittleEndian
}

// Seek moves to an absolute offset, which may equal Length() but not exceed it.
func (s *Stream) Seek(offset int64) error {
	if offset < 0 || offset > s.length {
		return NewError("seek", ErrMalformed, "offset %d outside %d byte stream %q", offset, s.length, s.name)
	}
	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	s.pos = offset
	return nil
}

// Skip moves forward n bytes.
func (s *Stream) Skip(n int64) error {
	return s.Seek(s.pos + n)
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if s.pos >= s.length {
		return 0, io.EOF
	}
	if remain := s.length - s.pos; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := s.rs.Read(p)
	s.pos += int64(n)
	return n, err
}

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadFull returns exactly n bytes or io.ErrUnexpectedEOF without allocating when the
// stream cannot possibly hold n more bytes.
func (s *Stream) ReadFull(n int) ([]byte, error) {
	if n < 0 || int64(n) > s.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Stream) ReadUint16() (uint16, error) {
	b, err := s.ReadFull(2)
	if err != nil {
		return 0, err
	}
	return s.order.Uint16(b), nil
}

func (s *Stream) ReadUint32() (uint32, error) {
	b, err := s.ReadFull(4)
	if err != nil {
		return 0, err
	}
	return s.order.Uint32(b), nil
}

func (s *Stream) ReadUint64() (uint64, error) {
	b, err := s.ReadFull(8)
	if err != nil {
		return 0, err
	}
	return s.order.Uint64(b), nil
}

func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadLine returns the bytes up to the next newline, excluding "\n" or "\r\n".
// At the end of the stream it returns what was read and io.EOF if that was nothing.
func (s *Stream) ReadLine() (string, error) {
	var line []byte
	for {
		b, err := s.ReadByte()
		if err == io.EOF {
			if len(line) == 0 {
				return "", io.EOF
			}
			break
		}
		if err != nil {
			return "", err
		}
		if b == '\n' {
			break
		}
		line = append(line, b)
	}
	return string(bytes.TrimSuffix(line, []byte{'\r'})), nil
}

// Peek returns up to n bytes at the current offset without moving it.  Short streams
// return fewer bytes rather than an error.
func (s *Stream) Peek(n int) ([]byte, error) {
	start := s.pos
	if remain := s.Remaining(); int64(n) > remain {
		n = int(remain)
	}
	buf, err := s.ReadFull(n)
	if serr := s.Seek(start); err == nil {
		err = serr
	}
	return buf, err
}

// Close closes the underlying reader if it can be closed.  Calling Close more than once
// is harmless.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

func (s *Stream) String() string {
	return fmt.Sprintf("stream %q (%d bytes, at %d)", s.name, s.length, s.pos)
}
