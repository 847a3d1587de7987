package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

const (
	defaultProductSearchURL   = "https://world.openfoodfacts.org/cgi/search.pl"
	defaultProductPlaceholder = "/placeholder-food.png"
	defaultProductCacheTTL    = 24 * time.Hour
	defaultProductConcurrency = 4
	defaultProductRPS         = 5
	maxProductImageBytes      = 5 << 20
)

var errNoProductImage = errors.New("no product image found")

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// ProductCache stores resolved image URLs by ingredient name
type ProductCache interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, imageURL string, ttl time.Duration) error
}

// ObjectUploader is the part of the S3 client used to mirror images
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// RedisProductCache keeps image URLs in Redis under product:image:<name>
type RedisProductCache struct {
	client *redis.Client
}

func NewRedisProductCache(client *redis.Client) *RedisProductCache {
	return &RedisProductCache{client: client}
}

func (c *RedisProductCache) Get(ctx context.Context, name string) (string, bool, error) {
	val, err := c.client.Get(ctx, productCacheKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read product cache: %w", err)
	}
	return val, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, name, imageURL string, ttl time.Duration) error {
	if err := c.client.Set(ctx, productCacheKey(name), imageURL, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write product cache: %w", err)
	}
	return nil
}

func productCacheKey(name string) string {
	return "product:image:" + normalizeProductName(name)
}

func normalizeProductName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ProductConfig configures the product image lookup
type ProductConfig struct {
	SearchURL         string
	PlaceholderURL    string
	RequestsPerSecond float64
	Concurrency       int
	CacheTTL          time.Duration
	Timeout           time.Duration
	Bucket            string
}

// ProductService resolves ingredient names to product images from Open Food
// Facts. Every failure degrades to the placeholder image.
type ProductService struct {
	cfg      ProductConfig
	client   *http.Client
	limiter  *rate.Limiter
	cache    ProductCache
	uploader ObjectUploader
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewProductService creates a ProductService. cache and uploader are optional.
func NewProductService(cfg ProductConfig, cache ProductCache, uploader ObjectUploader, collector *metrics.Collector, logger *zap.Logger) *ProductService {
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaultProductSearchURL
	}
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = defaultProductPlaceholder
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultProductRPS
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultProductConcurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultProductCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Bucket == "" {
		uploader = nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProductService{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Concurrency),
		cache:    cache,
		uploader: uploader,
		metrics:  collector,
		logger:   logger.Named("products"),
	}
}

// PlaceholderURL returns the image used when no product image is available
func (s *ProductService) PlaceholderURL() string {
	return s.cfg.PlaceholderURL
}

// LookupImages resolves every name concurrently and returns results in
// input order.
func (s *ProductService) LookupImages(ctx context.Context, names []string) []types.ProductImage {
	results := make([]types.ProductImage, len(names))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			results[i] = types.ProductImage{Name: name, ImageURL: s.LookupImage(ctx, name)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// LookupImage returns the image URL for one ingredient name.
func (s *ProductService) LookupImage(ctx context.Context, name string) string {
	if normalizeProductName(name) == "" {
		s.metrics.RecordProductLookup("placeholder")
		return s.cfg.PlaceholderURL
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, name)
		if err != nil {
			s.logger.Warn("product cache read failed", zap.String("name", name), zap.Error(err))
		} else if ok {
			s.metrics.RecordProductLookup("cache_hit")
			return cached
		}
	}

	imageURL, err := s.search(ctx, name)
	if err != nil {
		s.logger.Debug("product image lookup failed", zap.String("name", name), zap.Error(err))
		s.metrics.RecordProductLookup("placeholder")
		return s.cfg.PlaceholderURL
	}

	if s.uploader != nil {
		mirrored, err := s.mirrorImage(ctx, name, imageURL)
		if err != nil {
			s.logger.Warn("failed to mirror product image, returning source URL",
				zap.String("name", name), zap.Error(err))
		} else {
			imageURL = mirrored
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, name, imageURL, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("product cache write failed", zap.String("name", name), zap.Error(err))
		}
	}

	s.metrics.RecordProductLookup("found")
	return imageURL
}

type productSearchResponse struct {
	Products []struct {
		ImageFrontURL      string `json:"image_front_url"`
		ImageURL           string `json:"image_url"`
		ImageFrontSmallURL string `json:"image_front_small_url"`
	} `json:"products"`
}

func (s *ProductService) search(ctx context.Context, name string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("search_terms", normalizeProductName(name))
	q.Set("search_simple", "1")
	q.Set("action", "process")
	q.Set("json", "1")
	q.Set("page_size", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.SearchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "MrBrocoli/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search failed with status %d", resp.StatusCode)
	}

	var result productSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, p := range result.Products {
		for _, candidate := range []string{p.ImageFrontURL, p.ImageURL, p.ImageFrontSmallURL} {
			if candidate != "" {
				return candidate, nil
			}
		}
	}
	return "", errNoProductImage
}

// mirrorImage downloads the image and uploads it to the configured bucket.
func (s *ProductService) mirrorImage(ctx context.Context, name, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image, status: %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxProductImageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(imageData)
	}

	slug := strings.Trim(slugPattern.ReplaceAllString(normalizeProductName(name), "-"), "-")
	key := fmt.Sprintf("product-images/%s-%s", slug, uuid.New().String())

	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key), nil
}
