package mirror

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"

	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
)

const (
	maxScreenX = 1366
	maxScreenY = 768
)

// ErrPreviewClosed is returned by the preview when the user closes the window.
var ErrPreviewClosed = errors.New("preview window closed")

// Preview shows the annotated frames in a Gio window.
type Preview struct {
	title  string
	width  float64
	height float64
	bg     color.NRGBA
	frames chan image.Image
}

// NewPreview creates a preview window sized after the frames it will display.
// Frames larger than the screen are shown shrunk, keeping their aspect ratio.
func NewPreview(title string, size image.Point, bg color.NRGBA) *Preview {
	w, h := windowSize(float64(size.X), float64(size.Y))
	return &Preview{
		title:  title,
		width:  w,
		height: h,
		bg:     bg,
		frames: make(chan image.Image, 1),
	}
}

// windowSize returns the window dimensions fitting the frame on the screen.
func windowSize(w, h float64) (float64, float64) {
	if w > maxScreenX || h > maxScreenY {
		ratio := math.Min(maxScreenX/w, maxScreenY/h)
		w, h = w*ratio, h*ratio
	}
	return w, h
}

// Show queues the frame for display. Frames arriving faster than the window
// redraws replace the pending one.
func (p *Preview) Show(img image.Image) {
	select {
	case <-p.frames:
	default:
	}
	p.frames <- img
}

// Run opens the window and refreshes it with the frames passed to Show
// until the context is cancelled or the window is closed.
// Pressing Esc closes the window, in which case ErrPreviewClosed is returned.
func (p *Preview) Run(ctx context.Context) error {
	w := app.NewWindow(
		app.Title(p.title),
		app.Size(unit.Dp(p.width), unit.Dp(p.height)),
	)

	var (
		ops op.Ops
		img image.Image
	)
	for {
		select {
		case <-ctx.Done():
			w.Close()
			// Drain the window events until it is destroyed.
			for e := range w.Events() {
				if _, ok := e.(system.DestroyEvent); ok {
					return nil
				}
			}
			return nil
		case e := <-w.Events():
			switch e := e.(type) {
			case system.FrameEvent:
				gtx := layout.NewContext(&ops, e)
				paint.Fill(gtx.Ops, p.bg)

				if img != nil {
					widget.Image{
						Src: paint.NewImageOp(img),
						Fit: widget.Contain,
					}.Layout(gtx)
				}
				e.Frame(gtx.Ops)
			case key.Event:
				if e.Name == key.NameEscape {
					w.Close()
				}
			case system.DestroyEvent:
				if e.Err != nil {
					return e.Err
				}
				return ErrPreviewClosed
			}
		case img = <-p.frames:
			w.Invalidate()
		}
	}
}
