package improvision

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/format/tiff"
	"github.com/janelia-flyem/planeio/ifd"
	"github.com/janelia-flyem/planeio/ifd/ifdtest"
	"github.com/janelia-flyem/planeio/planeio"
)

// stack builds a 2x1 8-bit container of z planes by t timepoints, Z varying fastest.  The
// header holds the description of the first directory before its plane position.
func stack(header string, z, t int) []byte {
	b := ifdtest.New(true)
	for p := 0; p < z*t; p++ {
		desc := fmt.Sprintf("ZPlane=%d\r\nChannelNo=0\r\nChannelName=GFP\r\nTimepointName=%d\r\nTimeStampMicroSeconds=%d",
			p%z, p/z, 100*(p%z)+1000*(p/z))
		if p == 0 {
			desc = header + "\n" + desc
		}
		b.AddDirectory().
			Short(uint16(ifd.ImageWidth), 2).
			Short(uint16(ifd.ImageLength), 1).
			Short(uint16(ifd.BitsPerSample), 8).
			ASCII(uint16(ifd.ImageDescription), desc).
			Strips([]byte{byte(p), byte(10 + p)})
	}
	return b.Bytes()
}

const header = "Improvision Openlab\nTotalZPlanes=2\nTotalChannels=1\nTotalTimepoints=2\nXCalibrationMicrons=0.25\nYCalibrationMicrons=0.5\nZCalibrationMicrons=2"

func TestDetect(t *testing.T) {
	s := planeio.NewBytesStream("a.tif", stack(header, 2, 2))
	f, err := format.Detect(s)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != (Format{}).Name() {
		t.Errorf("expected Improvision TIFF, got %s", f.Name())
	}
	if s.Pos() != 0 {
		t.Errorf("detection moved stream to %d", s.Pos())
	}

	plain := ifdtest.New(true)
	plain.AddDirectory().
		Short(uint16(ifd.ImageWidth), 1).
		Short(uint16(ifd.ImageLength), 1).
		Short(uint16(ifd.BitsPerSample), 8).
		ASCII(uint16(ifd.ImageDescription), "acquired elsewhere").
		Strips([]byte{7})
	f, err = format.Detect(planeio.NewBytesStream("b.tif", plain.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != (tiff.Format{}).Name() {
		t.Errorf("expected plain TIFF, got %s", f.Name())
	}
}

func TestDimensions(t *testing.T) {
	sess, err := Open(planeio.NewBytesStream("a.tif", stack(header, 2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	m := sess.Metadata()[0]
	if m.SizeZ != 2 || m.SizeC != 1 || m.SizeT != 2 || m.ImageCount != 4 {
		t.Errorf("expected Z=2 C=1 T=2 with 4 planes, got %s", m)
	}
	if m.DimensionOrder != "XYZTC" {
		t.Errorf("expected XYZTC, got %s", m.DimensionOrder)
	}

	meta := sess.GlobalMetadata()
	expected := map[string]interface{}{
		"Improvision":        "yes",
		"TotalZPlanes":       "2",
		"Physical size X":    0.25,
		"Physical size Z":    2.0,
		"Channel 0 name":     "GFP",
		"Time increment (s)": 0.00055,
	}
	for k, v := range expected {
		if meta[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, meta[k])
		}
	}
	if _, found := meta[ifd.ImageDescription.String()]; found {
		t.Errorf("raw description should not be reported")
	}

	buf := make([]byte, 2)
	if err := sess.DecodePlane(0, 3, planeio.FullRect(m), buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{3, 13}) {
		t.Errorf("expected plane 3, got %v", buf)
	}
}

func TestInconsistentTotals(t *testing.T) {
	sess, err := Open(planeio.NewBytesStream("a.tif", stack("Improvision\nTotalZPlanes=3", 2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	m := sess.Metadata()[0]
	if m.SizeZ != 1 || m.SizeT != 4 || m.DimensionOrder != "XYCZT" {
		t.Errorf("expected TIFF dimensions after bad totals, got %s", m)
	}
}

func TestBadTotal(t *testing.T) {
	_, err := Open(planeio.NewBytesStream("a.tif", stack("Improvision\nTotalChannels=many", 1, 1)))
	if err == nil {
		t.Fatalf("expected error for non-numeric total")
	}
}

func TestClosed(t *testing.T) {
	sess, err := Open(planeio.NewBytesStream("a.tif", stack(header, 2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if sess.Metadata() != nil || sess.GlobalMetadata() != nil {
		t.Errorf("closed session should report no metadata")
	}
}

func TestDimensionOrder(t *testing.T) {
	tests := []struct {
		positions []position
		expected  string
	}{
		{nil, "XYZCT"},
		{[]position{{c: 0, hasCoords: true}, {c: 1, hasCoords: true}, {z: 1, hasCoords: true}}, "XYCZT"},
		{[]position{{t: 0, hasCoords: true}, {t: 1, hasCoords: true}}, "XYTZC"},
	}
	for _, tc := range tests {
		if got := dimensionOrder(tc.positions); got != tc.expected {
			t.Errorf("expected %s, got %s", tc.expected, got)
		}
	}
}
