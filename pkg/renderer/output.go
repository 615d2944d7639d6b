package renderer

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Image formats accepted by EncodeImage
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// FormatFromPath returns the image format implied by the file extension.
// Anything other than ".webp" is PNG.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		return FormatWebP
	}
	return FormatPNG
}

// EncodeImage writes img to w as PNG or lossless WebP
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("failed to encode WebP: %w", err)
		}
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
	return nil
}

// WriteImage encodes img to path in the format given by its extension
func WriteImage(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := EncodeImage(f, img, FormatFromPath(path)); err != nil {
		return err
	}

	logger.Infof("wrote %s", path)
	return f.Close()
}
