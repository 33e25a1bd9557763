package evidence

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Import for PNG decoding support
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxPhotoBytes    = 150 * 1024
	minPhotoBytes    = 50 * 1024
	targetPhotoBytes = 100 * 1024
	minPhotoWidth    = 600
	minPhotoHeight   = 400
)

var ErrInvalidPhoto = errors.New("invalid photo: only jpg, jpeg, png allowed")

var allowedPhotoExts = []string{".jpg", ".jpeg", ".png"}

func validatePhotoName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedPhotoExts {
		if ext == allowed {
			return nil
		}
	}
	return ErrInvalidPhoto
}

// compressPhoto re-encodes an image as JPEG, aiming for a size between
// minPhotoBytes and maxPhotoBytes. A JPEG already in range is kept as is.
func compressPhoto(buffer []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if format == "jpeg" && len(buffer) <= maxPhotoBytes && len(buffer) >= minPhotoBytes {
		return buffer, nil
	}

	// Start with quality 85 and reduce progressively
	quality := 85
	var compressed []byte
	for quality >= 50 {
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		compressed = buf.Bytes()

		if len(compressed) <= maxPhotoBytes {
			return compressed, nil
		}
		quality -= 5
	}

	// Still too large: scale towards the target size and encode once more.
	bounds := img.Bounds()
	ratio := math.Sqrt(float64(targetPhotoBytes) / float64(len(compressed)))
	width := max(int(float64(bounds.Dx())*ratio), minPhotoWidth)
	height := max(int(float64(bounds.Dy())*ratio), minPhotoHeight)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resizeImage(img, width, height), &jpeg.Options{Quality: 70}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage resizes an image to the specified dimensions using high-quality interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// Use CatmullRom for high-quality downscaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
