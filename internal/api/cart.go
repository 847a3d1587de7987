package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/middleware"
	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

const maxCartItems = 100

// CartHandler forwards groceries to the cart automation worker
type CartHandler struct {
	cart   service.CartAutomator
	logger *zap.Logger
}

func NewCartHandler(cart service.CartAutomator, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{cart: cart, logger: logger.Named("cart")}
}

// RegisterRoutes registers the cart routes. The group is expected to carry
// identity and rate limit middleware.
func (h *CartHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/cart/nofrills", h.AddToCart)
}

// AddToCart handles POST /cart/nofrills
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req types.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "Invalid request body")
		return
	}
	names := req.Names()
	if len(names) == 0 {
		abortInvalid(c, "At least one grocery item is required")
		return
	}
	if len(names) > maxCartItems {
		abortInvalid(c, "Too many grocery items")
		return
	}

	userID := middleware.UserID(c)
	result, err := h.cart.AddToCart(c.Request.Context(), userID, names)
	if err != nil {
		h.logger.Error("cart automation failed", zap.String("user_id", userID), zap.Error(err))
		if errors.Is(err, service.ErrCartUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, types.ErrorResponse{
				Error: "Cart automation is not available",
				Type:  types.ServiceUnavailable,
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, types.ErrorResponse{
			Error: "Failed to add items to cart",
			Type:  types.ServiceUnavailable,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
