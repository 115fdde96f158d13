package mirror

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/esimov/mirror/utils"
	"github.com/stretchr/testify/assert"
)

// closeTracker records whether the wrapped source has been released.
type closeTracker struct {
	FrameSource
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.FrameSource.Close()
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.SensorWidth, cfg.SensorHeight = 164, 92
	cfg.OverlayWidth, cfg.OverlayHeight = 82, 46
	cfg.Framerate = 0
	cfg.Preview = false
	cfg.FillColor = "red"
	cfg.FramesOut = filepath.Join(t.TempDir(), "frames")
	cfg.FramesFormat = ".png"
	cfg.Detections = filepath.Join(t.TempDir(), "detections.jsonl")
	return cfg
}

func singleFace(ctx context.Context, img image.Image) (Frame, error) {
	return Frame{{Box: BoundingBox{X: 10, Y: 10, Width: 40, Height: 40}, JoyScore: 50}}, nil
}

func TestMirror_ShouldAnnotateFrames(t *testing.T) {
	assert := assert.New(t)

	imgs := make([]image.Image, 3)
	for i := range imgs {
		imgs[i] = image.NewNRGBA(image.Rect(0, 0, 164, 92))
	}
	src := &closeTracker{FrameSource: NewImageSource(false, imgs...)}

	var logs bytes.Buffer
	logger, err := utils.NewLogger(utils.LoggerOptions{Output: &logs, NoColors: true})
	assert.NoError(err)

	cfg := testConfig(t)
	cfg.Diag = true

	var seen []int
	m := New(cfg, logger)
	m.Source = src
	m.Detector = DetectorFunc(singleFace)
	m.OnFrame = func(r Result) { seen = append(seen, r.Index) }

	sum, err := m.Run(context.Background())
	assert.NoError(err)
	assert.True(src.closed)
	assert.Equal([]int{1, 2, 3}, seen)
	assert.Equal(3, sum.Frames)
	assert.Equal(3, sum.Faces)
	assert.InDelta(50.0, sum.AvgJoyScore, 1e-9)
	assert.NotEmpty(sum.Session)

	// the 40x40 box is scaled by 0.5 and filled with red, the rest is the black background
	img, err := decodeImg(filepath.Join(cfg.FramesOut, "frame_00002.png"))
	assert.NoError(err)
	assert.Equal(image.Rect(0, 0, 82, 46), img.Bounds())
	assert.Equal(color.NRGBA{R: 0xff, A: 0xff}, color.NRGBAModel.Convert(img.At(15, 15)))
	assert.Equal(color.NRGBA{A: 0xff}, color.NRGBAModel.Convert(img.At(60, 20)))
	// the diagnostic label is written along the bottom of the overlay
	var lit int
	for y := 30; y < 46; y++ {
		for x := 0; x < 82; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)) == (color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
				lit++
			}
		}
	}
	assert.Greater(lit, 0)

	data, err := os.ReadFile(cfg.Detections)
	assert.NoError(err)
	assert.Equal(3, strings.Count(string(data), "\n"))
	assert.Contains(string(data), sum.Session)

	assert.Contains(logs.String(), "#00003")
	assert.Contains(logs.String(), "num_faces=1, avg_joy_score=50.00")
}

func TestMirror_ShouldStopAfterNumFrames(t *testing.T) {
	cfg := testConfig(t)
	cfg.NumFrames = 4
	cfg.FramesOut, cfg.Detections = "", ""

	m := New(cfg, nil)
	m.Source = NewImageSource(true, image.NewNRGBA(image.Rect(0, 0, 164, 92)))
	m.Detector = DetectorFunc(func(ctx context.Context, img image.Image) (Frame, error) {
		return nil, nil
	})

	sum, err := m.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4, sum.Frames)
	assert.Equal(t, 0, sum.Faces)
	assert.Equal(t, 0.0, sum.AvgJoyScore)
}

func TestMirror_ShouldReportErrors(t *testing.T) {
	boom := errors.New("camera unplugged")

	cfg := testConfig(t)
	src := &closeTracker{FrameSource: NewImageSource(true, image.NewNRGBA(image.Rect(0, 0, 8, 8)))}
	m := New(cfg, nil)
	m.Source = src
	m.Detector = DetectorFunc(func(ctx context.Context, img image.Image) (Frame, error) {
		return nil, boom
	})

	_, err := m.Run(context.Background())
	assert.True(t, errors.Is(err, boom))
	assert.True(t, src.closed)

	cfg.OverlayWidth = 0
	_, err = New(cfg, nil).Run(context.Background())
	assert.Error(t, err)

	cfg = testConfig(t)
	_, err = New(cfg, nil).Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoCascade))
}

func TestScaler_ShouldFollowFrameSize(t *testing.T) {
	s, err := newScaler(image.Pt(1640, 922), image.Pt(570, 320))
	assert.NoError(t, err)
	assert.Equal(t, s.scale, s.forFrame(image.Pt(1640, 922)))

	scale := s.forFrame(image.Pt(285, 160))
	assert.InDelta(t, 2.0, scale.X, 1e-9)
	assert.InDelta(t, 2.0, scale.Y, 1e-9)

	// degenerate frames keep the last valid scale
	assert.Equal(t, scale, s.forFrame(image.Point{}))
}
