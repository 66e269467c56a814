// Package turbojpeg compresses JPEG images with libjpeg-turbo, via cimg.
// Plug Compress into imgx.Codec.CompressJPEG.
package turbojpeg

import (
	"image"

	"github.com/bmharper/cimg/v2"
)

// Compress an image to JPEG. Alpha is ignored, because JPEG has no alpha channel.
func Compress(img *image.NRGBA, quality int) ([]byte, error) {
	b := img.Bounds()
	rgb := cimg.NewImage(b.Dx(), b.Dy(), cimg.PixelFormatRGB)
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dst := rgb.Pixels[y*rgb.Stride : y*rgb.Stride+b.Dx()*3]
		for x, d := 0, 0; x < len(src); x, d = x+4, d+3 {
			dst[d] = src[x]
			dst[d+1] = src[x+1]
			dst[d+2] = src[x+2]
		}
	}
	return cimg.Compress(rgb, cimg.MakeCompressParams(cimg.Sampling444, quality, 0))
}
