package preview

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// Formats lists the accepted preview encodings.
var Formats = []string{"webp", "tga"}

// Encode writes img in the named format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("preview: webp encode: %w", err)
		}
	case "tga":
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("preview: tga encode: %w", err)
		}
	default:
		return fmt.Errorf("preview: unknown format %q", format)
	}
	return nil
}

// Save encodes img to path, creating parent directories.
func Save(path string, img image.Image, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
