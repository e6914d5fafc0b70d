package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"return-service/internal/util"
)

// VisionClient is a LabelDetector backed by an external vision API exposing
// tag detection over raw image bytes. The request shape follows the analyze
// endpoint convention; any provider with a compatible response works.
type VisionClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewVisionClient creates a label-detection client
func NewVisionClient(endpoint, apiKey string, timeout time.Duration) *VisionClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &VisionClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// DetectLabels returns descriptive labels for the image. Transport and API
// errors propagate; callers decide whether an empty label set is acceptable.
func (v *VisionClient) DetectLabels(ctx context.Context, image []byte) ([]string, error) {
	start := time.Now()
	defer func() {
		util.VisionLatency.Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/analyze?visualFeatures=Tags,Description", v.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		util.VisionErrorsTotal.Inc()
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		util.VisionErrorsTotal.Inc()
		return nil, fmt.Errorf("vision request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		util.VisionErrorsTotal.Inc()
		return nil, fmt.Errorf("vision response unreadable: %w", err)
	}

	return decodeLabels(payload)
}

// decodeLabels extracts label names from the analyze response, merging the
// tags list with the description tag list when both are present.
func decodeLabels(payload []byte) ([]string, error) {
	var out struct {
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
		Description struct {
			Tags []string `json:"tags"`
		} `json:"description"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("vision response malformed: %w", err)
	}

	seen := make(map[string]bool)
	labels := make([]string, 0, len(out.Tags)+len(out.Description.Tags))
	for _, tag := range out.Tags {
		if tag.Name != "" && !seen[tag.Name] {
			seen[tag.Name] = true
			labels = append(labels, tag.Name)
		}
	}
	for _, tag := range out.Description.Tags {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			labels = append(labels, tag)
		}
	}
	return labels, nil
}
