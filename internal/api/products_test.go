package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

func TestLookupImages(t *testing.T) {
	env := newTestEnv(t)
	images := []types.ProductImage{
		{Name: "Eggs", ImageURL: "https://images.example/eggs.jpg"},
		{Name: "Saffron", ImageURL: "/placeholder-food.png"},
	}
	env.products.On("LookupImages", mock.Anything, []string{"Eggs", "Saffron"}).Return(images).Once()

	rec := env.do(http.MethodPost, "/api/v1/products/images", testToken,
		types.ProductImagesRequest{Names: []string{"Eggs", "Saffron"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Images []types.ProductImage `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, images, body.Images)
}

func TestLookupImages_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/products/images", testToken, types.ProductImagesRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/products/images", testToken,
		types.ProductImagesRequest{Names: make([]string, maxImageLookups+1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/products/images", "", types.ProductImagesRequest{Names: []string{"Eggs"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.products.AssertNotCalled(t, "LookupImages", mock.Anything, mock.Anything)
}
