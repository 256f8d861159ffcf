// Package imaging decodes and validates face images supplied as base64
// strings, data URIs, raw uploads, or remote URLs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	// Registered decoders for the supported input formats
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// DecodeBase64 decodes a base64 or data-URI encoded image and validates it
// against the configured limits.
func DecodeBase64(encoded string, limits config.ImageConfig) (image.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: "image data cannot be empty",
		}
	}

	// Strip data URI prefix if present (e.g., "data:image/jpeg;base64,")
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}

	// Reject oversized payloads before decoding; base64 inflates by 4/3
	if int64(len(encoded))/4*3 > limits.MaxBytes {
		return nil, &Error{
			Code:    CodeImageTooLarge,
			Message: fmt.Sprintf("image exceeds maximum allowed size of %d bytes", limits.MaxBytes),
		}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("invalid base64 encoding: %v", err),
		}
	}

	return Decode(data, limits)
}

// Decode validates raw image bytes and decodes them into an image.Image
func Decode(data []byte, limits config.ImageConfig) (image.Image, error) {
	if len(data) == 0 {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: "image data cannot be empty",
		}
	}

	if int64(len(data)) > limits.MaxBytes {
		return nil, &Error{
			Code: CodeImageTooLarge,
			Message: fmt.Sprintf("image size (%d bytes) exceeds maximum allowed (%d bytes)",
				len(data), limits.MaxBytes),
		}
	}

	// Sniff the content type so a recognized-but-disallowed image format is
	// reported distinctly from garbage bytes
	contentType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "image/") && !allowedContentTypes[contentType] {
		return nil, &Error{
			Code: CodeUnsupportedFormat,
			Message: fmt.Sprintf("unsupported image format %s; allowed formats: jpeg, png, bmp, webp",
				contentType),
		}
	}

	// Check dimensions from the header before a full decode
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("failed to decode image: %v", err),
		}
	}

	if cfg.Width < limits.MinDimension || cfg.Height < limits.MinDimension {
		return nil, &Error{
			Code: CodeInvalidImage,
			Message: fmt.Sprintf("image too small: %dx%d, minimum size: %dx%d",
				cfg.Width, cfg.Height, limits.MinDimension, limits.MinDimension),
		}
	}

	if cfg.Width > limits.MaxDimension || cfg.Height > limits.MaxDimension {
		return nil, &Error{
			Code: CodeInvalidImage,
			Message: fmt.Sprintf("image too large: %dx%d, maximum size: %dx%d",
				cfg.Width, cfg.Height, limits.MaxDimension, limits.MaxDimension),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("failed to decode image: %v", err),
		}
	}

	return img, nil
}

// IsURL reports whether the image input is a remote URL rather than base64 data
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
