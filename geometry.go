package mirror

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidScale is returned when a scale factor cannot be derived from the provided dimensions.
var ErrInvalidScale = errors.New("scale dimensions must be positive")

// BoundingBox is an axis-aligned rectangle in source image pixel space.
// X, Y is the top-left corner, Width and Height are expected to be non-negative.
type BoundingBox struct {
	X, Y          float64
	Width, Height float64
}

// ScaledRect is a rectangle in the overlay coordinate space, described by its two corner points.
type ScaledRect struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Scale holds the ratios between the overlay and the source frame dimensions.
type Scale struct {
	X, Y float64
}

// NewScale computes the scale factors mapping the src dimension onto the dst dimension.
func NewScale(src, dst image.Point) (Scale, error) {
	if src.X <= 0 || src.Y <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return Scale{}, fmt.Errorf("%w: source %v, destination %v", ErrInvalidScale, src, dst)
	}
	return Scale{
		X: float64(dst.X) / float64(src.X),
		Y: float64(dst.Y) / float64(src.Y),
	}, nil
}

// Transform maps a bounding box given as (x, y, width, height)
// into the (x1, y1, x2, y2) form of the overlay space.
func Transform(box BoundingBox, scaleX, scaleY float64) ScaledRect {
	return ScaledRect{
		X1: scaleX * box.X,
		Y1: scaleY * box.Y,
		X2: scaleX * (box.X + box.Width),
		Y2: scaleY * (box.Y + box.Height),
	}
}

// Transform maps the bounding box into the overlay space using the scale factors.
func (s Scale) Transform(box BoundingBox) ScaledRect {
	return Transform(box, s.X, s.Y)
}

// Rect converts the scaled rectangle to the closest integer image.Rectangle.
func (r ScaledRect) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X1)), int(math.Round(r.Y1)),
		int(math.Round(r.X2)), int(math.Round(r.Y2)),
	)
}

// Width returns the horizontal extent of the rectangle.
func (r ScaledRect) Width() float64 { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r ScaledRect) Height() float64 { return r.Y2 - r.Y1 }

// Area returns the surface covered by the bounding box.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Rect converts the bounding box to an integer image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(b.X)), int(math.Round(b.Y)),
		int(math.Round(b.X+b.Width)), int(math.Round(b.Y+b.Height)),
	)
}
