package delivery

import (
	"net/http"

	"chucheritas/internal/domain"
	"chucheritas/internal/middleware"
	"chucheritas/internal/usecase"
	"chucheritas/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	useCase usecase.OrderUseCase
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewOrderHandler(uc usecase.OrderUseCase, m *metrics.Metrics, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		metrics: m,
		log:     logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.POST("", middleware.RequireRoles(h.log, domain.CustomerOnly...), h.CreateOrder)
		orders.GET("", middleware.RequireRoles(h.log, domain.CustomerOnly...), h.ListOrders)
		orders.GET("/:id", middleware.RequireRoles(h.log, domain.RoleCustomer, domain.RoleCourier, domain.RoleAdministrator), h.GetOrderByID)
	}

	courier := router.Group("/courier", middleware.RequireRoles(h.log, domain.Fulfilment...))
	{
		courier.GET("/orders", h.ListActionable)
		courier.PATCH("/orders/:id/status", h.UpdateStatus)
	}
}

type createOrderLine struct {
	ProductID int             `json:"product_id" binding:"required,gt=0"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type createOrderBody struct {
	LocationID   int               `json:"location_id" binding:"required,gt=0"`
	CourierID    *int              `json:"courier_id" binding:"omitempty,gt=0"`
	DeliveryDate string            `json:"delivery_date" binding:"required"`
	Lines        []createOrderLine `json:"lines" binding:"required,min=1,dive"`
}

type updateStatusBody struct {
	Status domain.OrderStatus `json:"status" form:"status" binding:"required,oneof=pending en_route delivered cancelled"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindFailure(c, h.log, "create order", err)
		return
	}
	deliveryDate, err := parseDeliveryDate(body.DeliveryDate)
	if err != nil {
		failWith(c, h.log, "create order", err)
		return
	}

	lines := make([]domain.OrderLine, 0, len(body.Lines))
	for _, l := range body.Lines {
		lines = append(lines, domain.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity, Subtotal: l.Subtotal})
	}

	order, err := h.useCase.Create(c.Request.Context(), middleware.AuthContext(c), usecase.CreateOrderRequest{
		LocationID:   body.LocationID,
		CourierID:    body.CourierID,
		DeliveryDate: deliveryDate,
		Lines:        lines,
	})
	if err != nil {
		failWith(c, h.log, "create order", err)
		return
	}

	h.metrics.OrdersPlaced.Inc()
	h.log.Infof("Order %d created successfully for customer %d", order.ID, order.CustomerID)
	SuccessResponse(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.useCase.ListForCustomer(c.Request.Context(), middleware.AuthContext(c))
	if err != nil {
		failWith(c, h.log, "list orders", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.log.Warnf("Invalid order ID parameter: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.useCase.Get(c.Request.Context(), middleware.AuthContext(c), id)
	if err != nil {
		failWith(c, h.log, "get order", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

// ListActionable shows pending and en route orders to fulfilment staff.
func (h *OrderHandler) ListActionable(c *gin.Context) {
	orders, err := h.useCase.ListForCourier(c.Request.Context(), middleware.AuthContext(c))
	if err != nil {
		failWith(c, h.log, "list courier orders", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.log.Warnf("Invalid order ID parameter: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}
	var body updateStatusBody
	if err := c.ShouldBind(&body); err != nil {
		bindFailure(c, h.log, "update order status", err)
		return
	}

	order, err := h.useCase.UpdateStatus(c.Request.Context(), middleware.AuthContext(c), id, body.Status)
	if err != nil {
		failWith(c, h.log, "update order status", err)
		return
	}

	h.metrics.OrderStatus.WithLabelValues(string(order.Status)).Inc()
	h.log.Infof("Order %d moved to %s", order.ID, order.Status)
	SuccessResponse(c, http.StatusOK, "Order status updated", order)
}
