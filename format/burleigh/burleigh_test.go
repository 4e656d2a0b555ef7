package burleigh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/janelia-flyem/planeio/planeio"
)

func write(buf *bytes.Buffer, fields ...interface{}) {
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			panic(err)
		}
	}
}

func version1() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x66, 0x66, 0x06, 0x40})
	write(&buf, int16(2), int16(1))
	write(&buf, uint16(0x0102), uint16(0x0304))
	buf.Write(make([]byte, 12))
	write(&buf, int32(1000), int32(2000), int32(3000))
	write(&buf, int16(3), int16(3), int16(1), int16(2))
	write(&buf, float32(500), float32(0.75))
	return buf.Bytes()
}

func version2() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x66, 0x66, 0x46, 0x40})
	write(&buf, int16(2), int16(2))
	buf.Write(make([]byte, 14))
	write(&buf, int32(100), int32(200), int32(300))
	write(&buf, int16(7))
	buf.Write(make([]byte, 4))
	write(&buf, int16(3), int16(2))
	buf.Write(make([]byte, 12))
	write(&buf, float32(1.5), float32(2.5), float32(0.25))
	buf.Write(make([]byte, v2Pixels-buf.Len()))
	write(&buf, uint16(1), uint16(2), uint16(3), uint16(4))
	return buf.Bytes()
}

func TestVersion1(t *testing.T) {
	s := planeio.NewBytesStream("v1.img", version1())
	if !(Format{}).Probe(s) {
		t.Fatalf("probe rejected version 1 file")
	}
	sess, err := Open(s)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	m := sess.Metadata()[0]
	if m.SizeX != 2 || m.SizeY != 1 || m.PixelType != planeio.Uint16 || !m.LittleEndian || m.DimensionOrder != "XYZCT" {
		t.Errorf("bad metadata %s", m)
	}
	expected := Scan{
		Version:       1,
		XSize:         100,
		YSize:         200,
		ZSize:         300,
		TimePerPixel:  150,
		Magnification: 10,
		Mode:          1,
		Gain:          2,
		SampleVolts:   0.5,
		Current:       0.75,
	}
	if sc := sess.Scan(); sc != expected {
		t.Errorf("expected scan %+v, got %+v", expected, sc)
	}

	buf := make([]byte, 4)
	if err := sess.DecodePlane(0, 0, planeio.FullRect(m), buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{0x02, 0x01, 0x04, 0x03}) {
		t.Errorf("unexpected pixels %v", buf)
	}
}

func TestVersion2(t *testing.T) {
	sess, err := Open(planeio.NewBytesStream("v2.img", version2()))
	if err != nil {
		t.Fatal(err)
	}
	sc := sess.Scan()
	if sc.Version != 2 || sc.XSize != 100 || sc.Mode != 7 || sc.Gain != 3 || sc.TimePerPixel != 100 || sc.Force != 0.25 {
		t.Errorf("bad scan %+v", sc)
	}
	meta := sess.GlobalMetadata()
	if meta["Force"] != 0.25 || meta["Physical size X"] != 50.0 {
		t.Errorf("bad global metadata %v", meta)
	}

	buf := make([]byte, 2)
	if err := sess.DecodePlane(0, 0, planeio.Rect{X: 1, Y: 1, W: 1, H: 1}, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{4, 0}) {
		t.Errorf("unexpected pixel %v", buf)
	}

	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sess.DecodePlane(0, 0, planeio.Rect{X: 1, Y: 1, W: 1, H: 1}, buf); !errors.Is(err, planeio.ErrUninitialized) {
		t.Errorf("expected ErrUninitialized, got %v", err)
	}
}

func TestTruncated(t *testing.T) {
	data := version2()
	_, err := Open(planeio.NewBytesStream("short.img", data[:v2Pixels+2]))
	if !errors.Is(err, planeio.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	if (Format{}).Probe(planeio.NewBytesStream("short.img", data[:3])) {
		t.Errorf("probe accepted 3 byte stream")
	}
}
