package mirror

import (
	"errors"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransform_ShouldMatchReferenceScenario(t *testing.T) {
	assert := assert.New(t)

	scale, err := NewScale(image.Pt(1640, 922), image.Pt(570, 320))
	assert.NoError(err)

	rect := scale.Transform(BoundingBox{X: 100, Y: 100, Width: 200, Height: 150})

	assert.InDelta(34.76, rect.X1, 0.01)
	assert.InDelta(34.71, rect.Y1, 0.01)
	assert.InDelta(104.27, rect.X2, 0.01)
	assert.InDelta(86.77, rect.Y2, 0.01)
}

func TestTransform_ZeroBoxShouldStayZero(t *testing.T) {
	for _, s := range []float64{0.1, 1, 3.5, 570.0 / 1640} {
		rect := Transform(BoundingBox{}, s, s*2)
		assert.Equal(t, ScaledRect{}, rect)
	}
}

func TestTransform_CornersShouldBeOrdered(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		box := BoundingBox{
			X:      rnd.Float64()*2000 - 1000,
			Y:      rnd.Float64()*2000 - 1000,
			Width:  rnd.Float64() * 500,
			Height: rnd.Float64() * 500,
		}
		sx, sy := rnd.Float64()*4+0.001, rnd.Float64()*4+0.001

		rect := Transform(box, sx, sy)
		if rect.X1 > rect.X2 || rect.Y1 > rect.Y2 {
			t.Fatalf("corners out of order for %+v (sx=%v, sy=%v): %+v", box, sx, sy, rect)
		}
	}
}

func TestTransform_UniformScaleShouldBeLinear(t *testing.T) {
	box := BoundingBox{X: 12, Y: 7, Width: 40, Height: 33}
	unit := Transform(box, 1, 1)

	for _, s := range []float64{0.25, 0.5, 2, 10} {
		rect := Transform(box, s, s)
		assert.InDelta(t, unit.X1*s, rect.X1, 1e-9)
		assert.InDelta(t, unit.Y1*s, rect.Y1, 1e-9)
		assert.InDelta(t, unit.X2*s, rect.X2, 1e-9)
		assert.InDelta(t, unit.Y2*s, rect.Y2, 1e-9)
	}
}

func TestNewScale_ShouldRejectNonPositiveDimensions(t *testing.T) {
	cases := []struct {
		name     string
		src, dst image.Point
	}{
		{"zero source width", image.Pt(0, 10), image.Pt(10, 10)},
		{"negative source height", image.Pt(10, -1), image.Pt(10, 10)},
		{"zero destination", image.Pt(10, 10), image.Pt(0, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScale(tc.src, tc.dst)
			assert.True(t, errors.Is(err, ErrInvalidScale))
		})
	}
}

func TestScaledRect_Rect(t *testing.T) {
	rect := ScaledRect{X1: 34.76, Y1: 34.71, X2: 104.27, Y2: 86.77}

	assert.Equal(t, image.Rect(35, 35, 104, 87), rect.Rect())
	assert.InDelta(t, 69.51, rect.Width(), 1e-9)
	assert.InDelta(t, 52.06, rect.Height(), 1e-9)
}
