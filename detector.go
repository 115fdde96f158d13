package mirror

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/esimov/mirror/utils"
	pigo "github.com/esimov/pigo/core"
)

// ErrNoCascade is returned when the face detector is created without a cascade classifier.
var ErrNoCascade = errors.New("a face cascade classifier is required")

// Detector finds the faces present on a frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (Frame, error)
}

// DetectorFunc adapts an ordinary function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) (Frame, error)

// Detect calls fn(ctx, img).
func (fn DetectorFunc) Detect(ctx context.Context, img image.Image) (Frame, error) {
	return fn(ctx, img)
}

// PigoOptions holds the parameters of the pigo cascade run.
type PigoOptions struct {
	MinSize      int     `json:"min_size"`
	MaxSize      int     `json:"max_size"`
	ShiftFactor  float64 `json:"shift_factor"`
	ScaleFactor  float64 `json:"scale_factor"`
	Angle        float64 `json:"angle"`
	IoUThreshold float64 `json:"iou_threshold"`
	// MinQuality discards the detections scoring below this value.
	MinQuality float32 `json:"min_quality"`
	// MaxQuality is the detection score mapped to a joy score of 100.
	MaxQuality float32 `json:"max_quality"`
}

// DefaultPigoOptions returns the values used for a live camera feed.
func DefaultPigoOptions() PigoOptions {
	return PigoOptions{
		MinSize:      60,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
		MaxQuality:   50.0,
	}
}

// PigoDetector runs the pigo cascade classifier over the frames.
type PigoDetector struct {
	mu         sync.Mutex
	classifier *pigo.Pigo
	opts       PigoOptions
}

// LoadCascade reads and unpacks a cascade classifier file.
func LoadCascade(path string, opts PigoOptions) (*PigoDetector, error) {
	if path == "" {
		return nil, ErrNoCascade
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file: %w", err)
	}
	return NewPigoDetector(data, opts)
}

// NewPigoDetector unpacks the cascade classifier provided as binary data.
func NewPigoDetector(cascade []byte, opts PigoOptions) (*PigoDetector, error) {
	if len(cascade) == 0 {
		return nil, ErrNoCascade
	}
	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &PigoDetector{classifier: classifier, opts: opts}, nil
}

// Detect runs the classifier over the frame and returns the clustered face detections.
func (d *PigoDetector) Detect(ctx context.Context, img image.Image) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := imgToNRGBA(img)
	dx, dy := src.Bounds().Dx(), src.Bounds().Dy()

	maxSize := d.opts.MaxSize
	if maxSize <= 0 {
		maxSize = utils.Max(dx, dy)
	}

	cParams := pigo.CascadeParams{
		MinSize:     d.opts.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.opts.ShiftFactor,
		ScaleFactor: d.opts.ScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: rgbToGrayscale(src),
			Rows:   dy,
			Cols:   dx,
			Dim:    dx,
		},
	}

	d.mu.Lock()
	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, d.opts.Angle)
	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.classifier.ClusterDetections(dets, d.opts.IoUThreshold)
	d.mu.Unlock()

	return d.toFrame(dets), nil
}

// toFrame converts the pigo detections into faces, dropping the weak ones.
func (d *PigoDetector) toFrame(dets []pigo.Detection) Frame {
	faces := make(Frame, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.opts.MinQuality {
			continue
		}
		faces = append(faces, DetectedFace{
			Box: BoundingBox{
				X:      float64(det.Col - det.Scale/2),
				Y:      float64(det.Row - det.Scale/2),
				Width:  float64(det.Scale),
				Height: float64(det.Scale),
			},
			JoyScore: d.score(det.Q),
		})
	}
	return faces
}

// score maps the detection quality onto the [0, 100] range.
func (d *PigoDetector) score(q float32) float64 {
	if d.opts.MaxQuality <= d.opts.MinQuality {
		return float64(q)
	}
	s := float64(q-d.opts.MinQuality) / float64(d.opts.MaxQuality-d.opts.MinQuality) * 100
	return utils.Clamp(s, 0, 100)
}
