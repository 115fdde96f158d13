package mirror

import (
	"image"
)

// rgbToGrayscale converts an image to grayscale mode and
// returns the pixel values as an one dimensional array,
// which is the input format expected by the face detector.
func rgbToGrayscale(src *image.NRGBA) []uint8 {
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	gray := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		row := src.PixOffset(src.Bounds().Min.X, src.Bounds().Min.Y+y)
		for x := 0; x < width; x++ {
			i := row + x*4
			r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			gray[y*width+x] = uint8(
				0.299*float64(r) +
					0.587*float64(g) +
					0.114*float64(b),
			)
		}
	}

	return gray
}
