// Package media handles sourcing, validation, and preprocessing of request
// images before they reach the model runner.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"ocrgate/internal/domain"
)

var formatContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
}

// Image is a decoded request image together with its raw bytes and
// declared content type.
type Image struct {
	Decoded     image.Image
	Raw         []byte
	ContentType string
}

// Width returns the pixel width of the decoded image.
func (i *Image) Width() int { return i.Decoded.Bounds().Dx() }

// Height returns the pixel height of the decoded image.
func (i *Image) Height() int { return i.Decoded.Bounds().Dy() }

// Decode parses raw image bytes, accepting only PNG and JPEG.
func Decode(data []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	contentType, ok := formatContentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidImage, format)
	}
	return &Image{Decoded: img, Raw: data, ContentType: contentType}, nil
}

// DecodeDataURI parses an inline image attachment. Both full data URIs
// ("data:image/png;base64,...") and bare base64 payloads are accepted.
func DecodeDataURI(uri string) (*Image, error) {
	payload := uri
	if idx := strings.Index(uri, "base64,"); idx >= 0 {
		payload = uri[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", domain.ErrInvalidImage, err)
	}
	return Decode(data)
}

// Fetcher dereferences image URLs with size and time bounds.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher with the given timeout and size cap.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads and decodes an image from an http(s) URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching image url: %v", domain.ErrInvalidImage, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image url returned status %d", domain.ErrInvalidImage, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading image body: %v", domain.ErrInvalidImage, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidImage, f.maxBytes)
	}
	return Decode(data)
}

// Preprocess downscales the image to fit the preset's bounding square,
// preserving aspect ratio. Images already within bounds pass through
// untouched; the source image is never mutated.
func Preprocess(img image.Image, preset domain.SizePreset) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= preset.ImageSize && bounds.Dy() <= preset.ImageSize {
		return img
	}
	return imaging.Fit(img, preset.ImageSize, preset.ImageSize, imaging.Lanczos)
}

// EncodePNG serializes an image to PNG bytes for the runner payload.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
