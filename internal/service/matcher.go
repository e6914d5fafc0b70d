package service

import (
	"context"
	"sync"
	"time"

	"return-service/internal/models"
	"return-service/internal/util"

	"go.uber.org/zap"
)

// ProductMatcher ranks catalog products against an uploaded photo by
// embedding similarity
type ProductMatcher struct {
	extractor   FeatureExtractor
	fetcher     ImageFetcher
	cache       EmbeddingCache
	threshold   float64
	concurrency int
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewProductMatcher creates a product matcher. cache may be nil to disable
// embedding caching.
func NewProductMatcher(
	extractor FeatureExtractor,
	fetcher ImageFetcher,
	cache EmbeddingCache,
	threshold float64,
	concurrency int,
	cacheTTL time.Duration,
) *ProductMatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ProductMatcher{
		extractor:   extractor,
		fetcher:     fetcher,
		cache:       cache,
		threshold:   threshold,
		concurrency: concurrency,
		cacheTTL:    cacheTTL,
		logger:      util.GetLogger(),
	}
}

// candidate is one catalog image in scan order
type candidate struct {
	productIdx int
	ref        string
}

// FindBestMatch scores the uploaded image against every image of every
// product and returns the best product at or above the similarity threshold,
// or nil when nothing clears it. A product's score is the max over its
// images. On equal scores the earlier catalog candidate wins, regardless of
// scoring concurrency. Per-image fetch or extraction failures are skipped;
// only upload extraction failure aborts the scan.
func (m *ProductMatcher) FindBestMatch(ctx context.Context, upload []byte, products []models.Product) (*models.Product, float64, error) {
	ctx, span := util.StartSpan(ctx, "ProductMatcher.FindBestMatch")
	defer span.End()

	start := time.Now()
	defer func() {
		util.MatchLatency.Observe(time.Since(start).Seconds())
	}()

	uploadVec, err := m.extractor.Extract(ctx, upload)
	if err != nil {
		return nil, 0, err
	}

	var candidates []candidate
	for i := range products {
		for _, ref := range products[i].Images {
			candidates = append(candidates, candidate{productIdx: i, ref: ref})
		}
	}

	scores := make([]float64, len(candidates))
	scored := make([]bool, len(candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := m.concurrency
	if workers > len(candidates) {
		workers = len(candidates)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				score, err := m.scoreCandidate(ctx, uploadVec, candidates[idx].ref)
				if err != nil {
					util.CatalogImagesSkipped.WithLabelValues("error").Inc()
					m.logger.Warn("Skipping catalog image",
						zap.String("ref", candidates[idx].ref),
						zap.Error(err))
					continue
				}
				scores[idx] = score
				scored[idx] = true
				util.CatalogImagesScanned.Inc()
			}
		}()
	}

	for idx := range candidates {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, 0, ctx.Err()
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	// Winner selection happens here, in candidate order, so ties resolve to
	// the first-seen candidate no matter which worker scored it.
	best := -1.0
	bestIdx := -1
	for idx := range candidates {
		if scored[idx] && scores[idx] > best {
			best = scores[idx]
			bestIdx = idx
		}
	}

	if bestIdx == -1 {
		return nil, -1, nil
	}

	util.MatchBestScore.Observe(best)

	if best < m.threshold {
		m.logger.Info("Best candidate below threshold",
			zap.Float64("score", best),
			zap.Float64("threshold", m.threshold))
		return nil, best, nil
	}

	return &products[candidates[bestIdx].productIdx], best, nil
}

// scoreCandidate resolves one catalog image to an embedding, via the cache
// when possible, and scores it against the upload vector
func (m *ProductMatcher) scoreCandidate(ctx context.Context, uploadVec []float64, ref string) (float64, error) {
	vec, err := m.cachedEmbedding(ctx, ref)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(uploadVec, vec)
}

func (m *ProductMatcher) cachedEmbedding(ctx context.Context, ref string) ([]float64, error) {
	if m.cache != nil {
		cached, err := m.cache.GetEmbedding(ctx, ref)
		if err != nil {
			m.logger.Warn("Embedding cache read failed", zap.String("ref", ref), zap.Error(err))
		} else if cached != nil {
			util.EmbeddingCacheHits.Inc()
			return cached, nil
		}
	}

	data, err := m.fetcher.FetchImage(ctx, ref)
	if err != nil {
		return nil, err
	}

	vec, err := m.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		if err := m.cache.SetEmbedding(ctx, ref, vec, m.cacheTTL); err != nil {
			m.logger.Warn("Embedding cache write failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	return vec, nil
}
