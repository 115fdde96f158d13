package mirror

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/time/rate"
)

// ErrWebcamUnsupported is returned when the binary has been built without OpenCV support.
var ErrWebcamUnsupported = errors.New("webcam capture requires building with the gocv tag")

// FrameSource produces the raw frames the detector runs on.
// The underlying resource (camera, screen, files) is acquired by the constructor
// and released by Close. Finite sources return io.EOF once exhausted.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// ImageSource serves a fixed list of in-memory images.
type ImageSource struct {
	mu   sync.Mutex
	imgs []image.Image
	pos  int
	loop bool
}

// NewImageSource returns a finite source over the provided images.
// When loop is set the images are served repeatedly and the source never ends.
func NewImageSource(loop bool, imgs ...image.Image) *ImageSource {
	return &ImageSource{imgs: imgs, loop: loop}
}

// Next returns the next image of the list.
func (s *ImageSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.imgs) == 0 {
		return nil, io.EOF
	}
	if s.pos >= len(s.imgs) {
		if !s.loop {
			return nil, io.EOF
		}
		s.pos = 0
	}
	img := s.imgs[s.pos]
	s.pos++

	return img, nil
}

// Close releases the image list.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.imgs = nil
	return nil
}

// mirroredSource flips every frame of the wrapped source horizontally,
// the same way a front facing camera preview is mirrored.
type mirroredSource struct {
	src FrameSource
}

// NewMirroredSource wraps src so that each frame is flipped horizontally.
func NewMirroredSource(src FrameSource) FrameSource {
	return &mirroredSource{src: src}
}

func (m *mirroredSource) Next(ctx context.Context) (image.Image, error) {
	img, err := m.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	return imaging.FlipH(img), nil
}

func (m *mirroredSource) Close() error {
	return m.src.Close()
}

// rateLimitedSource caps the frequency at which frames are pulled from the wrapped source.
type rateLimitedSource struct {
	src     FrameSource
	limiter *rate.Limiter
}

// NewRateLimitedSource wraps src so that at most fps frames per second are delivered.
// A non-positive fps disables the limit.
func NewRateLimitedSource(src FrameSource, fps float64) FrameSource {
	if fps <= 0 {
		return src
	}
	return &rateLimitedSource{
		src:     src,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
	}
}

func (r *rateLimitedSource) Next(ctx context.Context) (image.Image, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		// Wait gives up early when the token would arrive after the deadline.
		// The frame can not be served in time, so wait for the context to expire.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("waiting for the next frame: %w", err)
	}
	return r.src.Next(ctx)
}

func (r *rateLimitedSource) Close() error {
	return r.src.Close()
}
