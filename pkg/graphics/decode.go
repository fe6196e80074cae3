// Package graphics draws the interpreter's textures. Surface renders them
// with Ebitengine; Headless keeps the same draw list without a GPU so that
// scripts can run in CI.
package graphics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/bmp"
)

// ErrUnsupportedImage is returned for data no registered decoder accepts.
var ErrUnsupportedImage = errors.New("unsupported image format")

// DecodeImage decodes PNG, JPEG and BMP data. Run-length encoded bitmaps,
// which golang.org/x/image/bmp rejects, go through DecodeRLE.
func DecodeImage(name string, data []byte) (image.Image, error) {
	if isRLEBitmap(data) {
		img, err := DecodeRLE(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return img, nil
	}
	if len(data) >= 2 && data[0] == 'B' && data[1] == 'M' {
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}
