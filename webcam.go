//go:build gocv

package mirror

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// WebcamSource reads frames from a video capture device through OpenCV.
type WebcamSource struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	mat    gocv.Mat
	id     int
}

// NewWebcamSource opens the capture device and requests the given sensor resolution and framerate.
func NewWebcamSource(deviceID int, size image.Point, fps float64) (*WebcamSource, error) {
	device, err := gocv.VideoCaptureDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("error opening video capture device %d: %w", deviceID, err)
	}
	if size.X > 0 && size.Y > 0 {
		device.Set(gocv.VideoCaptureFrameWidth, float64(size.X))
		device.Set(gocv.VideoCaptureFrameHeight, float64(size.Y))
	}
	if fps > 0 {
		device.Set(gocv.VideoCaptureFPS, fps)
	}
	return &WebcamSource{
		device: device,
		mat:    gocv.NewMat(),
		id:     deviceID,
	}, nil
}

// Next reads the next frame from the device, skipping the empty ones.
func (w *WebcamSource) Next(ctx context.Context) (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := w.device.Read(&w.mat); !ok {
			return nil, fmt.Errorf("cannot read device %d", w.id)
		}
		if w.mat.Empty() {
			continue
		}
		img, err := w.mat.ToImage()
		if err != nil {
			return nil, fmt.Errorf("converting the captured frame: %w", err)
		}
		return img, nil
	}
}

// Close releases the capture device.
func (w *WebcamSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mat.Close(); err != nil {
		return err
	}
	return w.device.Close()
}
