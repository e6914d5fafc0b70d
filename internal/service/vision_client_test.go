package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisionClientDetectLabels(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tags":[{"name":"lamp","confidence":0.98},{"name":"clean","confidence":0.91}],
			"description":{"tags":["lamp","indoor"]}
		}`))
	}))
	defer srv.Close()

	client := NewVisionClient(srv.URL, "test-key", 5*time.Second)

	labels, err := client.DetectLabels(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, []string{"lamp", "clean", "indoor"}, labels)
	assert.Equal(t, "test-key", gotKey)
}

func TestVisionClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewVisionClient(srv.URL, "bad-key", 5*time.Second)

	_, err := client.DetectLabels(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestVisionClientMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewVisionClient(srv.URL, "key", 5*time.Second)

	_, err := client.DetectLabels(context.Background(), []byte("img"))
	assert.Error(t, err)
}
