package mirror

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/esimov/mirror/imop"
)

// Compose scales the camera frame down to the overlay dimensions
// and blends the overlay over it using the source-over operator.
func Compose(frame image.Image, overlay *image.NRGBA) *image.NRGBA {
	size := overlay.Bounds().Size()

	dst := imaging.Resize(frame, size.X, size.Y, imaging.Linear)
	src := overlay
	if overlay.Bounds().Min != (image.Point{}) {
		src = imgToNRGBA(overlay)
	}

	op := imop.InitOp()
	op.Set(imop.SrcOver)
	op.Draw(&imop.Bitmap{Img: dst}, src, dst)

	return dst
}
