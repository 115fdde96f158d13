package mirror

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
)

func TestDetector_ShouldRequireCascade(t *testing.T) {
	_, err := NewPigoDetector(nil, DefaultPigoOptions())
	assert.True(t, errors.Is(err, ErrNoCascade))

	_, err = LoadCascade("", DefaultPigoOptions())
	assert.True(t, errors.Is(err, ErrNoCascade))

	_, err = LoadCascade(filepath.Join(t.TempDir(), "missing"), DefaultPigoOptions())
	assert.Error(t, err)
}

func TestDetector_ShouldConvertDetections(t *testing.T) {
	assert := assert.New(t)

	d := &PigoDetector{opts: DefaultPigoOptions()}
	faces := d.toFrame([]pigo.Detection{
		{Row: 100, Col: 200, Scale: 80, Q: 27.5},
		{Row: 10, Col: 10, Scale: 20, Q: 2.0},
		{Row: 300, Col: 300, Scale: 40, Q: 120},
	})

	assert.Len(faces, 2)
	assert.Equal(BoundingBox{X: 160, Y: 60, Width: 80, Height: 80}, faces[0].Box)
	assert.InDelta(50.0, faces[0].JoyScore, 1e-9)
	assert.InDelta(100.0, faces[1].JoyScore, 1e-9)
}

func TestDetector_ShouldDetectFaceOnSample(t *testing.T) {
	cascade := os.Getenv("MIRROR_CASCADE")
	sample := os.Getenv("MIRROR_SAMPLE")
	if cascade == "" || sample == "" {
		t.Skip("MIRROR_CASCADE and MIRROR_SAMPLE are not set")
	}

	d, err := LoadCascade(cascade, DefaultPigoOptions())
	if err != nil {
		t.Fatalf("error unpacking the cascade file: %v", err)
	}

	img, err := decodeImg(sample)
	if err != nil {
		t.Fatalf("could not load sample image: %v", err)
	}

	faces, err := d.Detect(context.Background(), img)
	assert.NoError(t, err)
	assert.NotEmpty(t, faces)
}

func TestDetectorFunc(t *testing.T) {
	want := Frame{{JoyScore: 1}}
	var det Detector = DetectorFunc(func(ctx context.Context, img image.Image) (Frame, error) {
		return want, nil
	})

	got, err := det.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}
