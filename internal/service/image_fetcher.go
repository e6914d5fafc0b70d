package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 20MB cap on fetched catalog images
const maxImageBytes = 20 << 20

// HTTPImageFetcher resolves catalog image URLs to raw bytes
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher creates an image fetcher with the given per-request
// timeout
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPImageFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchImage downloads a single catalog image. Failures here are per-image
// and non-fatal to a matching scan.
func (f *HTTPImageFetcher) FetchImage(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image reference %q: %w", ref, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %q: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image %q: %s", ref, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %q: %w", ref, err)
	}
	return data, nil
}
