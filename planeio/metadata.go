package planeio

import (
	"fmt"
	"math"
	"strings"
)

// CoreMetadata is the uniform record every format adapter fills for each series it exposes.
// A series is either an independent image or, for pyramidal containers, one resolution level
// where level 0 is the full resolution image and coarser levels are flagged Thumbnail.
type CoreMetadata struct {
	SizeX int
	SizeY int
	SizeZ int
	SizeC int
	SizeT int

	PixelType PixelType

	// BitsPerPixel is the # of significant bits per sample, which may be less than the
	// pixel type's storage, e.g., 12-bit data in uint16.
	BitsPerPixel int

	// DimensionOrder is a permutation of "XYZCT" giving the rasterization order of planes.
	DimensionOrder string

	ImageCount int

	RGB          bool
	Interleaved  bool
	LittleEndian bool
	Indexed      bool
	Thumbnail    bool
}

// RGBChannelCount returns the # of channels stored within each plane.
func (m CoreMetadata) RGBChannelCount() int {
	if m.RGB && m.SizeC > 0 {
		return m.SizeC
	}
	return 1
}

// EffectiveSizeC returns the # of planes along the C dimension.
func (m CoreMetadata) EffectiveSizeC() int {
	return m.SizeC / m.RGBChannelCount()
}

// PlaneSize returns the # of bytes of one full plane.
func (m CoreMetadata) PlaneSize() int {
	return product(m.SizeX, m.SizeY, m.RGBChannelCount(), m.PixelType.BytesPerPixel())
}

// RectSize returns the # of bytes needed to hold the given sub-rectangle of a plane.
// Sizes that do not fit in an int are reported as math.MaxInt.
func (m CoreMetadata) RectSize(r Rect) int {
	return product(r.W, r.H, m.RGBChannelCount(), m.PixelType.BytesPerPixel())
}

// product multiplies factors, saturating at math.MaxInt.  Any factor below one gives 0.
func product(factors ...int) int {
	n := 1
	for _, f := range factors {
		if f <= 0 {
			return 0
		}
		if n > math.MaxInt/f {
			return math.MaxInt
		}
		n *= f
	}
	return n
}

// Validate checks the record's internal consistency, most importantly that the
// dimensions account for exactly ImageCount planes.
func (m CoreMetadata) Validate() error {
	if m.SizeX <= 0 || m.SizeY <= 0 {
		return NewError("validate metadata", ErrMalformed, "bad plane size %d x %d", m.SizeX, m.SizeY)
	}
	if m.SizeZ <= 0 || m.SizeC <= 0 || m.SizeT <= 0 {
		return NewError("validate metadata", ErrMalformed, "bad dimension sizes Z=%d C=%d T=%d", m.SizeZ, m.SizeC, m.SizeT)
	}
	if m.SizeC%m.RGBChannelCount() != 0 {
		return NewError("validate metadata", ErrMalformed, "size C %d not divisible by %d RGB channels", m.SizeC, m.RGBChannelCount())
	}
	if n := m.SizeZ * m.EffectiveSizeC() * m.SizeT; n != m.ImageCount {
		return NewError("validate metadata", ErrMalformed, "Z*C*T = %d does not match image count %d", n, m.ImageCount)
	}
	if !validDimensionOrder(m.DimensionOrder) {
		return NewError("validate metadata", ErrMalformed, "bad dimension order %q", m.DimensionOrder)
	}
	return nil
}

func validDimensionOrder(order string) bool {
	if len(order) != 5 || !strings.HasPrefix(order, "XY") {
		return false
	}
	for _, dim := range "ZCT" {
		if strings.Count(order, string(dim)) != 1 {
			return false
		}
	}
	return true
}

func (m CoreMetadata) String() string {
	return fmt.Sprintf("%d x %d x %d (Z) x %d (C) x %d (T) %s, order %s, %d planes",
		m.SizeX, m.SizeY, m.SizeZ, m.SizeC, m.SizeT, m.PixelType, m.DimensionOrder, m.ImageCount)
}
