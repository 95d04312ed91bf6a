// Package media decodes inbound images and encodes them for upload.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode is wrapped by every DecodeError.
var ErrDecode = errors.New("image decode failed")

// DecodeError describes why inbound image data could not be turned into a bitmap.
type DecodeError struct {
	Stage string // "base64" or "image"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid image (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// Decode parses a data URL or bare base64 string into a bitmap. For data URLs
// only the part after the first comma is decoded.
func Decode(data string) (image.Image, error) {
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	data = strings.Join(strings.Fields(data), "")
	if data == "" {
		return nil, &DecodeError{Stage: "base64", Err: errors.New("empty payload")}
	}

	var (
		raw     []byte
		lastErr error
	)
	for _, enc := range encodings {
		b, err := enc.DecodeString(data)
		if err == nil {
			raw = b
			lastErr = nil
			break
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, &DecodeError{Stage: "base64", Err: lastErr}
	}

	return DecodeBytes(raw)
}

// DecodeBytes decodes raw image bytes in any registered raster format.
func DecodeBytes(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Stage: "image", Err: errors.New("no image data")}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Stage: "image", Err: err}
	}
	return img, nil
}

// EncodePNG encodes img as PNG regardless of its source format.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("encode png: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
