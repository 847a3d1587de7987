package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryProductCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func newMemoryProductCache() *memoryProductCache {
	return &memoryProductCache{entries: make(map[string]string)}
}

func (c *memoryProductCache) Get(_ context.Context, name string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[productCacheKey(name)]
	return v, ok, nil
}

func (c *memoryProductCache) Set(_ context.Context, name, imageURL string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[productCacheKey(name)] = imageURL
	return nil
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	body []byte
	err  error
}

func (u *fakeUploader) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, _ := io.ReadAll(params.Body)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, *params.Key)
	u.body = body
	return &s3.PutObjectOutput{}, nil
}

func newOpenFoodFactsServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img.jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes"))
			return
		}
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "1", r.URL.Query().Get("json"))
		switch r.URL.Query().Get("search_terms") {
		case "chicken breast":
			_, _ = w.Write([]byte(`{"products":[{"image_front_url":"` + server.URL + `/img.jpg"}]}`))
		case "eggs":
			_, _ = w.Write([]byte(`{"products":[{"image_front_url":"","image_url":"https://img.example/eggs.jpg"}]}`))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"products":[]}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProductService_LookupImages(t *testing.T) {
	var calls int32
	server := newOpenFoodFactsServer(t, &calls)
	cache := newMemoryProductCache()
	svc := NewProductService(ProductConfig{SearchURL: server.URL, RequestsPerSecond: 100}, cache, nil, nil, nil)

	names := []string{"Chicken  Breast", "eggs", "unobtainium", "broken", "  "}
	images := svc.LookupImages(context.Background(), names)

	require.Len(t, images, len(names))
	for i, img := range images {
		assert.Equal(t, names[i], img.Name)
	}
	assert.Equal(t, server.URL+"/img.jpg", images[0].ImageURL)
	assert.Equal(t, "https://img.example/eggs.jpg", images[1].ImageURL)
	assert.Equal(t, defaultProductPlaceholder, images[2].ImageURL)
	assert.Equal(t, defaultProductPlaceholder, images[3].ImageURL)
	assert.Equal(t, defaultProductPlaceholder, images[4].ImageURL)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))

	t.Run("cached names skip the search", func(t *testing.T) {
		got := svc.LookupImage(context.Background(), "chicken breast")
		assert.Equal(t, server.URL+"/img.jpg", got)
		assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
	})

	t.Run("cache errors fall through to search", func(t *testing.T) {
		cache.getErr = errors.New("down")
		defer func() { cache.getErr = nil }()
		got := svc.LookupImage(context.Background(), "eggs")
		assert.Equal(t, "https://img.example/eggs.jpg", got)
	})
}

func TestProductService_MirrorsToBucket(t *testing.T) {
	var calls int32
	server := newOpenFoodFactsServer(t, &calls)
	uploader := &fakeUploader{}
	svc := NewProductService(ProductConfig{SearchURL: server.URL, Bucket: "grocer-images"}, nil, uploader, nil, nil)

	got := svc.LookupImage(context.Background(), "Chicken Breast")

	require.Len(t, uploader.keys, 1)
	assert.True(t, strings.HasPrefix(uploader.keys[0], "product-images/chicken-breast-"))
	assert.Equal(t, "jpeg-bytes", string(uploader.body))
	assert.Equal(t, "https://grocer-images.s3.amazonaws.com/"+uploader.keys[0], got)
}

func TestProductService_MirrorFailureKeepsSourceURL(t *testing.T) {
	var calls int32
	server := newOpenFoodFactsServer(t, &calls)
	uploader := &fakeUploader{err: errors.New("access denied")}
	svc := NewProductService(ProductConfig{SearchURL: server.URL, Bucket: "grocer-images"}, nil, uploader, nil, nil)

	got := svc.LookupImage(context.Background(), "chicken breast")
	assert.Equal(t, server.URL+"/img.jpg", got)
}

func TestProductService_CancelledContext(t *testing.T) {
	var calls int32
	server := newOpenFoodFactsServer(t, &calls)
	svc := NewProductService(ProductConfig{SearchURL: server.URL, PlaceholderURL: "/none.png"}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "/none.png", svc.LookupImage(ctx, "eggs"))
	assert.Equal(t, "/none.png", svc.PlaceholderURL())
}
