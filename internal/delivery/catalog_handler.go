package delivery

import (
	"net/http"
	"strings"

	"chucheritas/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	useCase usecase.CatalogUseCase
	orders  usecase.OrderUseCase
	log     *logrus.Logger
}

func NewCatalogHandler(uc usecase.CatalogUseCase, orders usecase.OrderUseCase, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		useCase: uc,
		orders:  orders,
		log:     logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(router gin.IRouter) {
	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}
	router.GET("/categories", h.ListCategories)
	router.GET("/locations", h.ListLocations)
}

// ListProducts lists the active catalogue, or searches it when q is given.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		products := h.useCase.Search(ctx, q)
		SuccessResponse(c, http.StatusOK, "Search results", products)
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", h.useCase.ListActive(ctx))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.log.Warnf("Invalid product ID parameter: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.useCase.Get(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, "get product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Categories retrieved successfully", h.useCase.ListCategories(c.Request.Context()))
}

func (h *CatalogHandler) ListLocations(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Delivery locations retrieved successfully", h.orders.ListDeliveryLocations(c.Request.Context()))
}
