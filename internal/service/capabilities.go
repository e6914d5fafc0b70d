package service

import (
	"context"
	"time"

	"return-service/internal/models"
)

// FeatureExtractor turns raw image bytes into a fixed-length embedding vector.
// Extraction must be deterministic for a given image and model.
type FeatureExtractor interface {
	Extract(ctx context.Context, image []byte) ([]float64, error)
}

// LabelDetector produces descriptive labels for an image via an external
// vision capability
type LabelDetector interface {
	DetectLabels(ctx context.Context, image []byte) ([]string, error)
}

// ImageFetcher resolves a catalog image reference to raw image bytes
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) ([]byte, error)
}

// EmbeddingCache caches catalog image embeddings between matching scans
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, imageRef string) ([]float64, error)
	SetEmbedding(ctx context.Context, imageRef string, vector []float64, ttl time.Duration) error
}

// CatalogStore is the data-access capability for customers, products,
// orders, damage policies, and recorded returns
type CatalogStore interface {
	FindCustomerByCredentials(ctx context.Context, email, password string) (*models.Customer, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetOrderByCustomerAndProduct(ctx context.Context, customerID, productID int64) (*models.Order, error)
	GetDamagePolicyByID(ctx context.Context, id int64) (*models.DamagePolicy, error)
	CreateReturnedOrder(ctx context.Context, ret *models.ReturnedOrder) error
}

// OrderLocker serializes return recording per order across concurrent requests
type OrderLocker interface {
	AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (bool, error)
	ReleaseOrderLock(ctx context.Context, orderID int64) error
}

// ReturnEventPublisher publishes return outcome events
type ReturnEventPublisher interface {
	PublishReturnRecorded(ctx context.Context, event *models.ReturnRecordedEvent) error
	PublishReturnRejected(ctx context.Context, event *models.ReturnRejectedEvent) error
}
