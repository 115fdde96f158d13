package mirror

import (
	"context"
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

// ScreenSource grabs frames from the active screen, optionally restricted to a region.
// It never runs out of frames.
type ScreenSource struct {
	region image.Rectangle
}

// NewScreenSource returns a screen grabber. A nil or empty region captures the full screen.
func NewScreenSource(region *image.Rectangle) (*ScreenSource, error) {
	screen, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("unable to query the screen size: %w", err)
	}
	s := &ScreenSource{region: screen}
	if region != nil && !region.Empty() {
		s.region = region.Intersect(screen)
		if s.region.Empty() {
			return nil, fmt.Errorf("capture region %v is outside of the screen %v", *region, screen)
		}
	}
	return s, nil
}

// Bounds returns the captured screen area.
func (s *ScreenSource) Bounds() image.Rectangle {
	return s.region
}

// Next captures the screen region.
func (s *ScreenSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(s.region)
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}
	return img, nil
}

// Close is a no-op, the screen is not a scoped resource.
func (s *ScreenSource) Close() error {
	return nil
}
