package planeio

import "fmt"

// Rect is a sub-rectangle of a plane with its upper-left corner at (X, Y).
type Rect struct {
	X, Y int
	W, H int
}

// FullRect returns the rectangle covering an entire plane of the series.
func FullRect(m CoreMetadata) Rect {
	return Rect{0, 0, m.SizeX, m.SizeY}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d at (%d,%d)", r.W, r.H, r.X, r.Y)
}

// Intersect returns the overlap of two rectangles and whether it is non-empty.
func (r Rect) Intersect(s Rect) (Rect, bool) {
	x0, y0 := max(r.X, s.X), max(r.Y, s.Y)
	x1, y1 := min(r.X+r.W, s.X+s.W), min(r.Y+r.H, s.Y+s.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}, true
}

// CheckPlaneParameters verifies a plane request against the series record before any
// byte of buf is written.
func CheckPlaneParameters(m CoreMetadata, no int, bufLen int, r Rect) error {
	if no < 0 || no >= m.ImageCount {
		return NewError("check plane", ErrOutOfRange, "plane %d not in [0,%d)", no, m.ImageCount)
	}
	if r.W <= 0 || r.H <= 0 {
		return NewError("check plane", ErrOutOfRange, "empty rectangle %s", r)
	}
	if r.X < 0 || r.Y < 0 || r.W > m.SizeX-r.X || r.H > m.SizeY-r.Y {
		return NewError("check plane", ErrOutOfRange, "rectangle %s outside %d x %d plane", r, m.SizeX, m.SizeY)
	}
	if need := m.RectSize(r); bufLen < need {
		return NewError("check plane", ErrOutOfRange, "buffer holds %d bytes, need %d", bufLen, need)
	}
	return nil
}
