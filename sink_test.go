package mirror

import (
	"bufio"
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectionWriter_ShouldWriteJSONLines(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	scale := Scale{X: 0.5, Y: 0.25}
	w := NewDetectionWriter(&buf, "abc")
	w.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := w.Write(Result{
		Index: 1,
		Rate:  29.5,
		Faces: Frame{
			{Box: BoundingBox{X: 10, Y: 20, Width: 40, Height: 80}, JoyScore: 20},
			{Box: BoundingBox{X: 0, Y: 0, Width: 4, Height: 4}, JoyScore: 60},
		},
	}, scale)
	assert.NoError(err)
	assert.NoError(w.Write(Result{Index: 2}, scale))

	var lines []DetectionRecord
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec DetectionRecord
		assert.NoError(json.Unmarshal(sc.Bytes(), &rec))
		lines = append(lines, rec)
	}

	assert.Len(lines, 2)
	first := lines[0]
	assert.Equal("abc", first.Session)
	assert.Equal(1, first.Frame)
	assert.Equal(2, first.NumFaces)
	assert.InDelta(40.0, first.AvgJoyScore, 1e-9)
	assert.Equal([4]float64{5, 5, 25, 25}, first.Faces[0].Rect)
	assert.True(first.Time.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	empty := lines[1]
	assert.Equal(0, empty.NumFaces)
	assert.Equal(0.0, empty.AvgJoyScore)
	assert.NotNil(empty.Faces)
}

func TestDetectionWriter_ShouldAppendToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.jsonl")

	w, err := CreateDetectionWriter(path, "s")
	assert.NoError(t, err)
	assert.NoError(t, w.Write(Result{Index: 1}, Scale{X: 1, Y: 1}))
	assert.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(data, []byte("\n")))
}

func TestFrameWriter_ShouldWriteNumberedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")

	fw, err := NewFrameWriter(dir, ".png")
	assert.NoError(t, err)

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.NRGBA{R: 0xff, A: 0xff})
	assert.NoError(t, fw.Write(3, img))

	path := filepath.Join(dir, "frame_00003.png")
	assert.Equal(t, path, fw.Path(3))

	got, err := decodeImg(path)
	assert.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, color.NRGBAModel.Convert(got.At(1, 1)))
}

func TestFrameWriter_ShouldRejectUnsupportedFormats(t *testing.T) {
	for _, ext := range []string{".gif", ".tiff"} {
		_, err := NewFrameWriter(t.TempDir(), ext)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), ext)
	}
}

func TestFrameWriter_ShouldStream(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameStreamWriter(&buf, "")

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.NoError(t, fw.Write(1, img))
	n := buf.Len()
	assert.NoError(t, fw.Write(2, img))

	// jpeg start of image marker
	assert.Equal(t, []byte{0xff, 0xd8}, buf.Bytes()[:2])
	assert.Equal(t, 2*n, buf.Len())
}

func TestCompose_ShouldBlendOverlay(t *testing.T) {
	assert := assert.New(t)

	frame := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i+2] = 0xff
		frame.Pix[i+3] = 0xff
	}

	overlay := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	overlay.SetNRGBA(5, 5, color.NRGBA{R: 0xff, A: 0xff})

	out := Compose(frame, overlay)
	assert.Equal(image.Rect(0, 0, 20, 10), out.Bounds())
	assert.Equal(color.NRGBA{R: 0xff, A: 0xff}, out.NRGBAAt(5, 5))
	assert.Equal(color.NRGBA{B: 0xff, A: 0xff}, out.NRGBAAt(0, 0))
}
