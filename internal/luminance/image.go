package luminance

import (
	"image"

	"github.com/disintegration/imaging"
)

// PixelsFromImage copies img into a tightly packed, non-premultiplied RGBA
// buffer anchored at (0,0).
func PixelsFromImage(img image.Image) PixelBuffer {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = imaging.Clone(img)
	}
	return PixelsFromNRGBA(nrgba)
}

// PixelsFromNRGBA packs img rows into a PixelBuffer, dropping any stride
// padding. The pixel data is copied.
func PixelsFromNRGBA(img *image.NRGBA) PixelBuffer {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowLen := w * BytesPerPixel
	data := make([]byte, rowLen*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(data[y*rowLen:(y+1)*rowLen], img.Pix[off:off+rowLen])
	}
	return PixelBuffer{Width: w, Height: h, Data: data}
}
