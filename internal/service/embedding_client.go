package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"return-service/internal/util"

	"golang.org/x/image/draw"
)

// Sentinel errors for the feature extraction path
var (
	ErrImageDecode      = errors.New("image cannot be decoded")
	ErrModelUnavailable = errors.New("embedding backend unavailable")
)

const (
	// Canonical model input size. The backend expects a 224x224 RGB raster
	// with ImageNet channel normalization applied.
	inputSize = 224

	maxRetries = 3
)

// ImageNet channel statistics used for pixel normalization
var (
	imagenetMean = [3]float64{0.485, 0.456, 0.406}
	imagenetStd  = [3]float64{0.229, 0.224, 0.225}
)

// EmbeddingClient is an HTTP FeatureExtractor backed by a remote embedding
// model server. It decodes, resizes, and normalizes the raster locally and
// sends the prepared tensor to the backend. One client is shared across
// requests and across the matcher's scoring workers, so the lazily
// discovered dimension is kept in an atomic.
type EmbeddingClient struct {
	baseURL   string
	model     string
	client    *http.Client
	dimension atomic.Int64
}

// NewEmbeddingClient creates a feature extraction client for the embedding
// backend
func NewEmbeddingClient(baseURL, model string, timeout time.Duration) *EmbeddingClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &EmbeddingClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Dimension returns the embedding dimensionality, 0 until the first
// successful extraction
func (c *EmbeddingClient) Dimension() int { return int(c.dimension.Load()) }

// Extract decodes the image, prepares the model input, and returns the
// embedding vector
func (c *EmbeddingClient) Extract(ctx context.Context, img []byte) ([]float64, error) {
	start := time.Now()
	defer func() {
		util.EmbeddingLatency.Observe(time.Since(start).Seconds())
	}()

	pixels, err := prepareInput(img)
	if err != nil {
		return nil, err
	}

	return c.embed(ctx, pixels)
}

// prepareInput decodes the raster, resizes it to the canonical input size,
// and applies ImageNet pixel normalization in HWC channel order.
func prepareInput(data []byte) ([]float64, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	pixels := make([]float64, 0, inputSize*inputSize*3)
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			rgb := [3]float64{
				float64(r) / 65535.0,
				float64(g) / 65535.0,
				float64(b) / 65535.0,
			}
			for ch := 0; ch < 3; ch++ {
				pixels = append(pixels, (rgb[ch]-imagenetMean[ch])/imagenetStd[ch])
			}
		}
	}
	return pixels, nil
}

func (c *EmbeddingClient) embed(ctx context.Context, pixels []float64) ([]float64, error) {
	type reqBody struct {
		Model  string    `json:"model"`
		Width  int       `json:"width"`
		Height int       `json:"height"`
		Pixels []float64 `json:"pixels"`
	}

	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	body, err := json.Marshal(reqBody{
		Model:  c.model,
		Width:  inputSize,
		Height: inputSize,
		Pixels: pixels,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: %s", ErrModelUnavailable, resp.Status)
			continue
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embedding request rejected: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			continue
		}

		vector, err := decodeEmbedding(payload)
		if err != nil {
			return nil, err
		}
		c.dimension.CompareAndSwap(0, int64(len(vector)))
		return vector, nil
	}

	return nil, lastErr
}

// decodeEmbedding accepts both the flat {"embedding": [...]} shape and the
// OpenAI-compatible {"data": [{"embedding": [...]}]} shape.
func decodeEmbedding(payload []byte) ([]float64, error) {
	var flat struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &flat); err == nil && len(flat.Embedding) > 0 {
		return flat.Embedding, nil
	}

	var nested struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &nested); err == nil &&
		len(nested.Data) > 0 && len(nested.Data[0].Embedding) > 0 {
		return nested.Data[0].Embedding, nil
	}

	return nil, errors.New("no embedding in backend response")
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}
