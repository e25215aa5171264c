package delivery

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"chucheritas/internal/domain"
	"chucheritas/internal/middleware"
	"chucheritas/internal/usecase"
	"chucheritas/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	useCase usecase.CartUseCase
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewCartHandler(uc usecase.CartUseCase, m *metrics.Metrics, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		useCase: uc,
		metrics: m,
		log:     logger,
	}
}

func (h *CartHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/cart/count", h.Count)

	cart := router.Group("/cart", middleware.RequireRoles(h.log, domain.CustomerOnly...))
	{
		cart.GET("", h.View)
		cart.POST("/add/:id", h.Add)
		cart.POST("/update/:id", h.Update)
		cart.POST("/remove/:id", h.Remove)
		cart.POST("/clear", h.Clear)
	}
	router.POST("/checkout", middleware.RequireRoles(h.log, domain.CustomerOnly...), h.Checkout)
}

// addForm leaves quantity optional; absent means one unit.
type addForm struct {
	Quantity *int `form:"quantity" json:"quantity" binding:"omitempty,gt=0"`
}

type updateForm struct {
	Quantity *int `form:"quantity" json:"quantity" binding:"required,gte=0"`
}

type checkoutForm struct {
	LocationID   int    `form:"location_id" json:"location_id" binding:"required,gt=0"`
	CourierID    *int   `form:"courier_id" json:"courier_id" binding:"omitempty,gt=0"`
	DeliveryDate string `form:"delivery_date" json:"delivery_date" binding:"required"`
}

// Count answers the header badge. Anonymous callers and store failures yield 0.
func (h *CartHandler) Count(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.useCase.Count(c.Request.Context(), middleware.AuthContext(c))})
}

func (h *CartHandler) View(c *gin.Context) {
	view := h.useCase.View(c.Request.Context(), middleware.AuthContext(c))
	SuccessResponse(c, http.StatusOK, "Cart retrieved successfully", view)
}

func (h *CartHandler) Add(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		h.finish(c, "add", domain.Invalid("invalid product id"), "")
		return
	}
	var form addForm
	if err := c.ShouldBind(&form); err != nil && !errors.Is(err, io.EOF) {
		h.finish(c, "add", domain.Invalid("quantity must be a positive whole number"), "")
		return
	}
	quantity := 1
	if form.Quantity != nil {
		quantity = *form.Quantity
	}

	err := h.useCase.Add(c.Request.Context(), middleware.AuthContext(c), productID, quantity)
	h.finish(c, "add", err, "Product added to cart")
}

func (h *CartHandler) Update(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		h.finish(c, "update", domain.Invalid("invalid product id"), "")
		return
	}
	var form updateForm
	if err := c.ShouldBind(&form); err != nil {
		h.finish(c, "update", domain.Invalid("quantity must be zero or a positive whole number"), "")
		return
	}

	err := h.useCase.SetQuantity(c.Request.Context(), middleware.AuthContext(c), productID, *form.Quantity)
	h.finish(c, "update", err, "Cart updated")
}

func (h *CartHandler) Remove(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		h.finish(c, "remove", domain.Invalid("invalid product id"), "")
		return
	}
	err := h.useCase.Remove(c.Request.Context(), middleware.AuthContext(c), productID)
	h.finish(c, "remove", err, "Product removed from cart")
}

func (h *CartHandler) Clear(c *gin.Context) {
	err := h.useCase.Clear(c.Request.Context(), middleware.AuthContext(c))
	h.finish(c, "clear", err, "Cart emptied")
}

func (h *CartHandler) Checkout(c *gin.Context) {
	var form checkoutForm
	if err := c.ShouldBind(&form); err != nil {
		bindFailure(c, h.log, "checkout", err)
		return
	}
	deliveryDate, err := parseDeliveryDate(form.DeliveryDate)
	if err != nil {
		failWith(c, h.log, "check out", err)
		return
	}

	actx := middleware.AuthContext(c)
	order, err := h.useCase.Checkout(c.Request.Context(), actx, usecase.CheckoutRequest{
		LocationID:   form.LocationID,
		CourierID:    form.CourierID,
		DeliveryDate: deliveryDate,
	})
	if err != nil {
		failWith(c, h.log, "check out", err)
		return
	}

	h.metrics.OrdersPlaced.Inc()
	h.log.Infof("Order %d placed from cart by customer %d", order.ID, order.CustomerID)
	SuccessResponse(c, http.StatusCreated, "Order placed successfully", order)
}

func (h *CartHandler) finish(c *gin.Context, operation string, err error, okMessage string) {
	h.metrics.CartMutations.WithLabelValues(operation, metrics.Outcome(err)).Inc()
	if err != nil {
		status := mapErrorToStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Errorf("Cart %s failed: %v", operation, err)
		} else {
			h.log.Warnf("Cart %s rejected: %v", operation, err)
		}
	}
	count := h.useCase.Count(c.Request.Context(), middleware.AuthContext(c))
	cartResult(c, err, okMessage, count)
}

// parseDeliveryDate accepts an RFC 3339 timestamp or a plain date.
func parseDeliveryDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.Invalid("delivery date is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, domain.Invalid("delivery date must look like 2006-01-02")
}
