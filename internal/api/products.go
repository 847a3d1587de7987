package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

const maxImageLookups = 50

// ProductHandler resolves product images for plan ingredients
type ProductHandler struct {
	products service.ProductLookup
}

func NewProductHandler(products service.ProductLookup) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/products/images", h.LookupImages)
}

// LookupImages handles POST /products/images. Every requested name gets an
// entry, in request order.
func (h *ProductHandler) LookupImages(c *gin.Context) {
	var req types.ProductImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "Invalid request body")
		return
	}
	if len(req.Names) == 0 {
		abortInvalid(c, "At least one product name is required")
		return
	}
	if len(req.Names) > maxImageLookups {
		abortInvalid(c, "Too many product names")
		return
	}

	images := h.products.LookupImages(c.Request.Context(), req.Names)
	c.JSON(http.StatusOK, gin.H{"images": images})
}
