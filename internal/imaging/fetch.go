package imaging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// Fetcher retrieves images from remote URLs with a bounded body size
type Fetcher struct {
	client *http.Client
	limits config.ImageConfig
	logger *zap.Logger
}

// NewFetcher creates a fetcher bound to the configured image limits
func NewFetcher(limits config.ImageConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: limits.FetchTimeout},
		limits: limits,
		logger: logger,
	}
}

// Fetch downloads and decodes an image from an http(s) URL
func (f *Fetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if !IsURL(url) {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: "image URL must start with http:// or https://",
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("invalid image URL: %v", err),
		}
	}
	// Some CDNs reject requests without an Accept header
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{
				Code:    CodeProcessingError,
				Message: fmt.Sprintf("timeout while fetching image from URL: %s", url),
			}
		}
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("failed to fetch image from URL: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("failed to fetch image from URL: HTTP %d", resp.StatusCode),
		}
	}

	// Read one byte past the limit to detect oversized bodies
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.limits.MaxBytes+1))
	if err != nil {
		return nil, &Error{
			Code:    CodeInvalidImage,
			Message: fmt.Sprintf("failed to read image body: %v", err),
		}
	}
	if int64(len(data)) > f.limits.MaxBytes {
		return nil, &Error{
			Code:    CodeImageTooLarge,
			Message: fmt.Sprintf("image exceeds maximum allowed size of %d bytes", f.limits.MaxBytes),
		}
	}

	f.logger.Debug("Fetched remote image",
		zap.String("url", url),
		zap.Int("bytes", len(data)))

	return Decode(data, f.limits)
}
