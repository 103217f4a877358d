package cutout

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	// Header decoders for the formats rich-text fields embed.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
)

// Cache memoizes fetched image dimensions. Implemented by the Redis
// wrapper; a nil cache disables memoization.
type Cache interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// HTTPImageSizer fetches an image and decodes only its header to learn the
// intrinsic dimensions. Sizes are memoized: the same screenshots appear in
// every recompute of the same item.
type HTTPImageSizer struct {
	client *http.Client
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewHTTPImageSizer(client *http.Client, cache Cache, ttl time.Duration, logger *zap.Logger) *HTTPImageSizer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPImageSizer{client: client, cache: cache, ttl: ttl, logger: logger}
}

func (s *HTTPImageSizer) Size(ctx context.Context, url string) (int, int, error) {
	key := "imgsize:" + url
	if s.cache != nil {
		if v, ok, err := s.cache.GetString(ctx, key); err == nil && ok {
			var w, h int
			if _, err := fmt.Sscanf(v, "%dx%d", &w, &h); err == nil {
				return w, h, nil
			}
		} else if err != nil {
			s.logger.Warn("image size cache read failed", zap.Error(err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, 0, fmt.Errorf("image fetch returned %d", resp.StatusCode)
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetString(ctx, key, fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), s.ttl); err != nil {
			s.logger.Warn("image size cache write failed", zap.Error(err))
		}
	}
	return cfg.Width, cfg.Height, nil
}
