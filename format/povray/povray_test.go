package povray

import (
	"bytes"
	"errors"
	"testing"

	"github.com/janelia-flyem/planeio/planeio"
)

// volume returns a 3x2x2 df3 file with voxel value 10*z + 3*y + x.
func volume(bytesPerVoxel int) []byte {
	data := []byte{0, 3, 0, 2, 0, 2}
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				v := byte(10*z + 3*y + x)
				data = append(data, make([]byte, bytesPerVoxel-1)...)
				data = append(data, v)
			}
		}
	}
	return data
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{"vol.df3", volume(1), true},
		{"VOL.DF3", volume(2), true},
		{"vol.raw", volume(1), false},
		{"vol.df3", volume(3), false},
		{"vol.df3", []byte{0, 3}, false},
	}
	for _, tc := range tests {
		if got := (Format{}).Probe(planeio.NewBytesStream(tc.name, tc.data)); got != tc.expected {
			t.Errorf("probe %s with %d bytes: expected %t", tc.name, len(tc.data), tc.expected)
		}
	}
}

func TestDecode(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		sess, err := Open(planeio.NewBytesStream("vol.df3", volume(n)))
		if err != nil {
			t.Fatal(err)
		}
		m := sess.Metadata()[0]
		if m.SizeX != 3 || m.SizeY != 2 || m.SizeZ != 2 || m.ImageCount != 2 || m.PixelType.BytesPerPixel() != n || m.LittleEndian {
			t.Errorf("bad metadata for %d byte voxels: %s", n, m)
		}
		r := planeio.Rect{X: 1, Y: 0, W: 2, H: 2}
		buf := make([]byte, m.RectSize(r))
		if err := sess.DecodePlane(0, 1, r, buf); err != nil {
			t.Fatal(err)
		}
		var expected []byte
		for _, v := range []byte{11, 12, 14, 15} {
			expected = append(expected, make([]byte, n-1)...)
			expected = append(expected, v)
		}
		if !bytes.Equal(buf, expected) {
			t.Errorf("%d byte voxels: expected %v, got %v", n, expected, buf)
		}
		if err := sess.DecodePlane(0, 2, r, buf); !errors.Is(err, planeio.ErrOutOfRange) {
			t.Errorf("expected ErrOutOfRange for plane 2, got %v", err)
		}
		sess.Close()
	}
}

func TestMalformed(t *testing.T) {
	if _, err := Open(planeio.NewBytesStream("vol.df3", volume(3))); !errors.Is(err, planeio.ErrMalformed) {
		t.Errorf("expected ErrMalformed for 3 byte voxels, got %v", err)
	}
	if _, err := Open(planeio.NewBytesStream("vol.df3", []byte{0, 0, 0, 1, 0, 1})); !errors.Is(err, planeio.ErrMalformed) {
		t.Errorf("expected ErrMalformed for empty volume, got %v", err)
	}
}
