package mirror

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"
)

// rateWindow is the number of frame timestamps used to estimate the frame rate.
const rateWindow = 30

// Result is the outcome of one inference cycle.
type Result struct {
	// Index is the 1-based sequence number of the frame.
	Index int
	// Rate is the processing frame rate measured when the frame was completed.
	Rate  float64
	Image image.Image
	Faces Frame
}

// Inference pulls frames from a source and runs the detector on each of them.
type Inference struct {
	src    FrameSource
	det    Detector
	filter Filter

	mu    sync.Mutex
	count int
	times []time.Time
	now   func() time.Time
}

// NewInference binds a frame source to a detector. The optional filters are applied
// to the detections of each frame, in order.
func NewInference(src FrameSource, det Detector, filters ...Filter) *Inference {
	return &Inference{
		src:    src,
		det:    det,
		filter: ChainFilters(filters...),
		times:  make([]time.Time, 0, rateWindow),
		now:    time.Now,
	}
}

// Run processes numFrames frames, or runs until the source is exhausted when numFrames is not positive.
// Each result is handed to fn; an error returned by fn stops the loop and is returned.
// Cancelling the context stops the loop without error.
func (inf *Inference) Run(ctx context.Context, numFrames int, fn func(Result) error) error {
	for processed := 0; numFrames <= 0 || processed < numFrames; processed++ {
		if ctx.Err() != nil {
			return nil
		}
		img, err := inf.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		faces, err := inf.det.Detect(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("running detection: %w", err)
		}
		faces = inf.filter(faces)

		index, fps := inf.tick()
		if err := fn(Result{Index: index, Rate: fps, Image: img, Faces: faces}); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of frames processed so far.
func (inf *Inference) Count() int {
	inf.mu.Lock()
	defer inf.mu.Unlock()

	return inf.count
}

// Rate returns the frame rate measured over the last frames.
func (inf *Inference) Rate() float64 {
	inf.mu.Lock()
	defer inf.mu.Unlock()

	return inf.rate()
}

// tick records a processed frame and returns its index and the current rate.
func (inf *Inference) tick() (int, float64) {
	inf.mu.Lock()
	defer inf.mu.Unlock()

	inf.count++
	if len(inf.times) == rateWindow {
		copy(inf.times, inf.times[1:])
		inf.times = inf.times[:rateWindow-1]
	}
	inf.times = append(inf.times, inf.now())

	return inf.count, inf.rate()
}

// rate computes the frames per second of the sliding window. Caller must hold the locker.
func (inf *Inference) rate() float64 {
	if len(inf.times) < 2 {
		return 0
	}
	elapsed := inf.times[len(inf.times)-1].Sub(inf.times[0])
	if elapsed <= 0 {
		return 0
	}
	return float64(len(inf.times)-1) / elapsed.Seconds()
}
