package mirror

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/esimov/mirror/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Summary reports the outcome of a run.
type Summary struct {
	Session string
	Frames  int
	Faces   int
	// AvgJoyScore is the mean joy score of all the faces seen during the run.
	AvgJoyScore float64
	Elapsed     time.Duration
}

// Mirror detects the faces on the frames of a source and draws their boxes on an overlay.
type Mirror struct {
	Config Config
	Logger logrus.FieldLogger

	// Source and Detector replace the ones described by the config when set.
	Source   FrameSource
	Detector Detector

	// OnFrame, when set, is called after each annotated frame.
	OnFrame func(Result)
}

// New returns a Mirror using the provided settings.
// A nil logger discards the log entries.
func New(cfg Config, logger logrus.FieldLogger) *Mirror {
	return &Mirror{Config: cfg, Logger: logger}
}

// Execute runs the mirror described by the config with the default source and detector.
func Execute(ctx context.Context, cfg Config, logger logrus.FieldLogger) (Summary, error) {
	return New(cfg, logger).Run(ctx)
}

// openSource acquires the frame source selected in the config.
// It also returns the frame size the detections are expressed in.
func (m *Mirror) openSource(ctx context.Context) (FrameSource, image.Point, error) {
	cfg := m.Config
	if m.Source != nil {
		return m.Source, cfg.SensorSize(), nil
	}

	switch cfg.Source {
	case SourceFile:
		src, err := NewFileSource(ctx, cfg.Input)
		return src, cfg.SensorSize(), err
	case SourceScreen:
		src, err := NewScreenSource(cfg.Region)
		if err != nil {
			return nil, image.Point{}, err
		}
		return src, src.Bounds().Size(), nil
	case SourceWebcam:
		src, err := NewWebcamSource(cfg.Device, cfg.SensorSize(), cfg.Framerate)
		return src, cfg.SensorSize(), err
	}
	return nil, image.Point{}, fmt.Errorf("unknown frame source: %q", cfg.Source)
}

// Run processes the frames until the configured number of frames is reached,
// the source is exhausted, the preview window is closed or the context is cancelled.
// The source and the sinks are released before returning.
func (m *Mirror) Run(ctx context.Context) (sum Summary, err error) {
	cfg := m.Config
	if err := cfg.Validate(); err != nil {
		return sum, err
	}

	sum.Session = uuid.NewString()
	logger := m.Logger
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	log := logger.WithField("session", sum.Session)

	bg, fg, fill, err := cfg.Colors()
	if err != nil {
		return sum, err
	}

	det := m.Detector
	if det == nil {
		if det, err = LoadCascade(cfg.Cascade, cfg.Detector); err != nil {
			return sum, err
		}
	}

	src, sensor, err := m.openSource(ctx)
	if err != nil {
		return sum, fmt.Errorf("could not open the frame source: %w", err)
	}
	if cfg.Mirror {
		src = NewMirroredSource(src)
	}
	src = NewRateLimitedSource(src, cfg.Framerate)

	closers := []func() error{src.Close}
	defer func() {
		for _, fn := range closers {
			err = multierr.Append(err, fn())
		}
	}()

	scaler, err := newScaler(sensor, cfg.OverlaySize())
	if err != nil {
		return sum, err
	}

	var detections *DetectionWriter
	if cfg.Detections != "" {
		if detections, err = CreateDetectionWriter(cfg.Detections, sum.Session); err != nil {
			return sum, err
		}
		closers = append(closers, detections.Close)
	}

	var frames *FrameWriter
	if cfg.FramesOut != "" {
		if frames, err = NewFrameWriter(cfg.FramesOut, cfg.FramesFormat); err != nil {
			return sum, err
		}
		closers = append(closers, frames.Close)
	}

	annotator := NewAnnotator(cfg.OverlaySize(), bg, fg)
	annotator.SetLineWidth(cfg.LineWidth)

	var filters []Filter
	if cfg.MinScore > 0 {
		filters = append(filters, NewScoreFilter(cfg.MinScore))
	}
	if cfg.MinArea > 0 {
		filters = append(filters, NewAreaFilter(cfg.MinArea))
	}
	inference := NewInference(src, det, filters...)

	var preview *Preview
	if cfg.Preview {
		preview = NewPreview("Mirror", cfg.OverlaySize(), color.NRGBAModel.Convert(bg).(color.NRGBA))
	}

	var scoreSum float64
	handle := func(res Result) error {
		scale := scaler.forFrame(res.Image.Bounds().Size())

		annotator.Clear()
		for _, face := range res.Faces {
			annotator.BoundingBox(scale.Transform(face.Box), fill)
		}
		avg := AverageScore(res.Faces)
		if cfg.Diag {
			label := fmt.Sprintf("faces %d joy %.2f", len(res.Faces), avg)
			annotator.Text(label, 2, float64(cfg.OverlayHeight)-3)
		}
		overlay := annotator.Update()

		entry := log.WithFields(logrus.Fields{
			"frame":         res.Index,
			"fps":           fmt.Sprintf("%5.2f", res.Rate),
			"num_faces":     len(res.Faces),
			"avg_joy_score": fmt.Sprintf("%.2f", avg),
		})
		msg := fmt.Sprintf("#%05d (%5.2f fps): num_faces=%d, avg_joy_score=%.2f",
			res.Index, res.Rate, len(res.Faces), avg)
		if cfg.Diag {
			entry.Info(msg)
		} else {
			entry.Debug(msg)
		}

		if detections != nil {
			if err := detections.Write(res, scale); err != nil {
				return err
			}
		}
		if preview != nil || frames != nil {
			composed := Compose(res.Image, overlay)
			if preview != nil {
				preview.Show(composed)
			}
			if frames != nil {
				if err := frames.Write(res.Index, composed); err != nil {
					return fmt.Errorf("could not save frame %d: %w", res.Index, err)
				}
			}
		}

		sum.Frames = res.Index
		sum.Faces += len(res.Faces)
		for _, face := range res.Faces {
			scoreSum += face.JoyScore
		}
		if m.OnFrame != nil {
			m.OnFrame(res)
		}
		return nil
	}

	start := time.Now()
	log.WithField("source", cfg.Source).Info("mirror started")

	g, gctx := errgroup.WithContext(ctx)
	pctx, stopPreview := context.WithCancel(gctx)
	defer stopPreview()

	g.Go(func() error {
		defer stopPreview()
		return inference.Run(gctx, cfg.NumFrames, handle)
	})
	if preview != nil {
		g.Go(func() error {
			return preview.Run(pctx)
		})
	}
	err = g.Wait()
	if errors.Is(err, ErrPreviewClosed) {
		log.Info("preview closed by the user")
		err = nil
	}

	sum.Elapsed = time.Since(start)
	if sum.Faces > 0 {
		sum.AvgJoyScore = scoreSum / float64(sum.Faces)
	}
	log.WithFields(logrus.Fields{
		"frames":  sum.Frames,
		"faces":   sum.Faces,
		"elapsed": sum.Elapsed.String(),
	}).Info("mirror stopped")

	return sum, err
}

// scaler maps the detections onto the overlay. The scale is computed once
// for the sensor resolution and only recomputed when a frame of a different
// size shows up, which happens with image files of mixed dimensions.
type scaler struct {
	mu      sync.Mutex
	overlay image.Point
	size    image.Point
	scale   Scale
}

func newScaler(sensor, overlay image.Point) (*scaler, error) {
	scale, err := NewScale(sensor, overlay)
	if err != nil {
		return nil, err
	}
	return &scaler{overlay: overlay, size: sensor, scale: scale}, nil
}

func (s *scaler) forFrame(size image.Point) Scale {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size != s.size {
		if scale, err := NewScale(size, s.overlay); err == nil {
			s.size, s.scale = size, scale
		}
	}
	return s.scale
}
