package loaders

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/df07/go-bvh/pkg/core"
)

// ImageData contains loaded image data as Vec3 color array
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3 // Row-major, row 0 at the top
}

// At returns the color of pixel (x, y)
func (d *ImageData) At(x, y int) core.Vec3 {
	return d.Pixels[y*d.Width+x]
}

// Luminance returns the Rec. 709 luminance of pixel (x, y)
func (d *ImageData) Luminance(x, y int) float64 {
	c := d.At(x, y)
	return 0.2126*c.X + 0.7152*c.Y + 0.0722*c.Z
}

// LoadImage loads a PNG, JPEG, BMP or TGA image and converts it to a Vec3
// color array. Images larger than maxSize along either axis are scaled down
// to fit; maxSize <= 0 keeps the original size.
func LoadImage(filename string, maxSize int) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	img, err := decodeImage(file, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if maxSize > 0 && (bounds.Dx() > maxSize || bounds.Dy() > maxSize) {
		img = fitImage(img, maxSize)
		logger.Debugf("scaled %s from %dx%d to %dx%d", filename,
			bounds.Dx(), bounds.Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}

	return toImageData(img), nil
}

// decodeImage picks the decoder from the file extension. TGA has no magic
// number, so format sniffing is not used.
func decodeImage(r io.Reader, ext string) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Decode(r)
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".bmp":
		return bmp.Decode(r)
	case ".tga":
		return tga.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image format %q", ext)
	}
}

// fitImage scales img so that its longer side is maxSize
func fitImage(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width, height := maxSize, maxSize
	if bounds.Dx() > bounds.Dy() {
		height = max(1, bounds.Dy()*maxSize/bounds.Dx())
	} else {
		width = max(1, bounds.Dx()*maxSize/bounds.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

func toImageData(img image.Image) *ImageData {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// RGBA returns uint32 in [0, 65535], convert to [0, 1]
			pixels[y*width+x] = core.NewVec3(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)
		}
	}

	return &ImageData{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}
}
