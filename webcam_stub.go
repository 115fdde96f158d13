//go:build !gocv

package mirror

import (
	"context"
	"image"
)

// WebcamSource is unavailable without the gocv build tag.
type WebcamSource struct{}

// NewWebcamSource always fails, build with -tags gocv to enable webcam capture.
func NewWebcamSource(deviceID int, size image.Point, fps float64) (*WebcamSource, error) {
	return nil, ErrWebcamUnsupported
}

// Next always fails.
func (w *WebcamSource) Next(ctx context.Context) (image.Image, error) {
	return nil, ErrWebcamUnsupported
}

// Close does nothing.
func (w *WebcamSource) Close() error {
	return nil
}
