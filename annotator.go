package mirror

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
)

// Annotator renders the face boxes in software on an overlay smaller than the camera frame.
// The drawing calls only affect the canvas until Update takes a snapshot of it.
type Annotator struct {
	mu        sync.Mutex
	dc        *gg.Context
	bgColor   color.Color
	fgColor   color.Color
	lineWidth float64
}

// NewAnnotator creates an overlay of the given dimensions.
// The background color is used by Clear, the default color outlines the boxes.
func NewAnnotator(size image.Point, bg, fg color.Color) *Annotator {
	a := &Annotator{
		dc:        gg.NewContext(size.X, size.Y),
		bgColor:   bg,
		fgColor:   fg,
		lineWidth: 2,
	}
	a.Clear()
	return a
}

// Size returns the overlay dimensions.
func (a *Annotator) Size() image.Point {
	return image.Pt(a.dc.Width(), a.dc.Height())
}

// SetLineWidth changes the stroke width of the outlines.
func (a *Annotator) SetLineWidth(w float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lineWidth = w
}

// Clear fills the canvas with the background color.
func (a *Annotator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dc.SetColor(a.bgColor)
	a.dc.Clear()
}

// BoundingBox draws the rectangle outlined with the default color.
// The inside is painted with fill unless it is nil.
func (a *Annotator) BoundingBox(rect ScaledRect, fill color.Color) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dc.DrawRectangle(rect.X1, rect.Y1, rect.Width(), rect.Height())
	if fill != nil {
		a.dc.SetColor(fill)
		a.dc.FillPreserve()
	}
	a.dc.SetColor(a.fgColor)
	a.dc.SetLineWidth(a.lineWidth)
	a.dc.Stroke()
}

// Text writes a label using the default color. The (x, y) position is the
// baseline origin of the first character.
func (a *Annotator) Text(s string, x, y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dc.SetColor(a.fgColor)
	a.dc.DrawString(s, x, y)
}

// Update returns a snapshot of the canvas as it is drawn so far.
func (a *Annotator) Update() *image.NRGBA {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshot()
}

// snapshot copies the canvas. Caller must hold the locker.
func (a *Annotator) snapshot() *image.NRGBA {
	return imgToNRGBA(a.dc.Image())
}
