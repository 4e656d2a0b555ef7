package planeio

import (
	"errors"
	"io"
	"testing"
)

func TestStreamTypedReads(t *testing.T) {
	s := NewBytesStream("test", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	v, err := s.ReadUint16()
	if err != nil || v != 0x0102 {
		t.Fatalf("big-endian read: got %x, %v", v, err)
	}
	s.SetOrder(true)
	w, err := s.ReadUint32()
	if err != nil || w != 0x06050403 {
		t.Fatalf("little-endian read: got %x, %v", w, err)
	}
	if s.Remaining() != 0 {
		t.Errorf("expected stream to be exhausted, %d bytes left", s.Remaining())
	}
	if _, err := s.ReadByte(); err != io.EOF {
		t.Errorf("expected io.EOF at end, got %v", err)
	}
}

func TestStreamBounds(t *testing.T) {
	s := NewBytesStream("test", make([]byte, 8))
	if err := s.Seek(8); err != nil {
		t.Errorf("seek to end should be allowed: %v", err)
	}
	if err := s.Seek(9); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed seeking past end, got %v", err)
	}
	if err := s.Seek(4); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadFull(5); err != io.ErrUnexpectedEOF {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if s.Pos() != 4 {
		t.Errorf("failed ReadFull should not move the stream, at %d", s.Pos())
	}
}

func TestStreamPeekAndLines(t *testing.T) {
	s := NewBytesStream("test", []byte("P5\r\n# comment\n12 7"))
	head, err := s.Peek(16)
	if err != nil {
		t.Fatal(err)
	}
	if string(head[:2]) != "P5" || s.Pos() != 0 {
		t.Errorf("peek should not move stream: %q at %d", head, s.Pos())
	}
	var lines []string
	for {
		line, err := s.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 3 || lines[0] != "P5" || lines[2] != "12 7" {
		t.Errorf("unexpected lines: %q", lines)
	}
}
