package utils

import (
	"bytes"

	"github.com/disintegration/imaging"
)

const ThumbnailWidth = 200

// GenerateThumbnail decodes a jpeg/png image and re-encodes it as a 200px wide jpeg.
func GenerateThumbnail(originalData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(originalData))
	if err != nil {
		return nil, err
	}

	thumbnail := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
