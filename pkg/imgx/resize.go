package imgx

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Letterbox is the result of ResizeLetterboxed
type Letterbox struct {
	Image         *image.NRGBA // Canvas of the requested size
	ContentWidth  int          // Width of the resized image inside the canvas
	ContentHeight int          // Height of the resized image inside the canvas
	OffsetX       int          // Left edge of the content inside the canvas
	OffsetY       int          // Top edge of the content inside the canvas
}

// Return the size of img when it is scaled to fit inside targetWidth x targetHeight, preserving aspect ratio.
func FitSize(width, height, targetWidth, targetHeight int) (int, int) {
	var cw, ch int
	if width*targetHeight >= height*targetWidth {
		// Wider than the target, so width fills the target
		cw = targetWidth
		ch = int(float64(height)*float64(targetWidth)/float64(width) + 0.5)
	} else {
		ch = targetHeight
		cw = int(float64(width)*float64(targetHeight)/float64(height) + 0.5)
	}
	return max(cw, 1), max(ch, 1)
}

// ResizeLetterboxed scales img to fit inside a targetWidth x targetHeight canvas, preserving aspect ratio,
// and centers it on a canvas filled with background.
// Transparent pixels in img are flattened onto the background.
func ResizeLetterboxed(img image.Image, targetWidth, targetHeight int, background color.Color) (*Letterbox, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &InvalidImageError{Reason: fmt.Sprintf("dimensions are %vx%v", b.Dx(), b.Dy())}
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf("Invalid letterbox size %vx%v", targetWidth, targetHeight)
	}
	cw, ch := FitSize(b.Dx(), b.Dy(), targetWidth, targetHeight)

	var content image.Image
	if cw == b.Dx() && ch == b.Dy() {
		content = img
	} else {
		content = imaging.Resize(img, cw, ch, imaging.Linear)
	}

	lb := &Letterbox{
		Image:         imaging.New(targetWidth, targetHeight, background),
		ContentWidth:  cw,
		ContentHeight: ch,
		OffsetX:       (targetWidth - cw) / 2,
		OffsetY:       (targetHeight - ch) / 2,
	}
	dst := image.Rect(lb.OffsetX, lb.OffsetY, lb.OffsetX+cw, lb.OffsetY+ch)
	draw.Draw(lb.Image, dst, content, content.Bounds().Min, draw.Over)
	return lb, nil
}

// Thumbnail scales img down to fit inside maxWidth x maxHeight, and centers it on a transparent
// canvas of exactly that size. Images that already fit are not enlarged.
func Thumbnail(img image.Image, maxWidth, maxHeight int) *image.NRGBA {
	fitted := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	canvas := imaging.New(maxWidth, maxHeight, color.NRGBA{})
	return imaging.PasteCenter(canvas, fitted)
}
