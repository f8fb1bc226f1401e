package raster

import (
	"fmt"
	"image/png"
	"io"
	"os"
)

// EncodePNG writes b as a PNG image.
func EncodePNG(w io.Writer, b *Buffer) error {
	if err := png.Encode(w, b.Image()); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// ReadPNG decodes a PNG file into a Buffer.
func ReadPNG(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return FromImage(img), nil
}
