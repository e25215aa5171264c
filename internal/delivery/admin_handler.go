package delivery

import (
	"net/http"
	"strconv"

	"chucheritas/internal/domain"
	"chucheritas/internal/middleware"
	"chucheritas/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AdminHandler serves catalogue maintenance and staff accounts.
type AdminHandler struct {
	catalog usecase.CatalogUseCase
	auth    usecase.AuthUseCase
	log     *logrus.Logger
}

func NewAdminHandler(catalog usecase.CatalogUseCase, auth usecase.AuthUseCase, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		auth:    auth,
		log:     logger,
	}
}

func (h *AdminHandler) RegisterRoutes(router gin.IRouter) {
	admin := router.Group("/admin", middleware.RequireRoles(h.log, domain.AdministratorOnly...))
	{
		admin.GET("/products", h.ListProducts)
		admin.POST("/products", h.CreateProduct)
		admin.GET("/products/low-stock", h.LowStock)
		admin.PATCH("/products/:id", h.UpdateProduct)
		admin.POST("/products/:id/discontinue", h.Discontinue)
		admin.POST("/products/:id/stock", h.AdjustStock)
		admin.POST("/categories", h.CreateCategory)
		admin.POST("/employees", h.CreateEmployee)
	}
}

type productBody struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" binding:"gte=0"`
	CategoryID  *int            `json:"category_id" binding:"omitempty,gt=0"`
}

type stockBody struct {
	Delta *int `json:"delta" form:"delta" binding:"required"`
}

type categoryBody struct {
	Description string `json:"description" form:"description" binding:"required"`
}

type employeeBody struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role" binding:"required,oneof=administrator courier"`
}

func (h *AdminHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListAll(c.Request.Context(), middleware.AuthContext(c))
	if err != nil {
		failWith(c, h.log, "list products", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var body productBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindFailure(c, h.log, "create product", err)
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), middleware.AuthContext(c), &domain.Product{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Stock:       body.Stock,
		CategoryID:  body.CategoryID,
	})
	if err != nil {
		failWith(c, h.log, "create product", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Product created successfully", product)
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		bindFailure(c, h.log, "update product", err)
		return
	}

	product, err := h.catalog.Update(c.Request.Context(), middleware.AuthContext(c), id, patch)
	if err != nil {
		failWith(c, h.log, "update product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product updated successfully", product)
}

func (h *AdminHandler) Discontinue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if err := h.catalog.Discontinue(c.Request.Context(), middleware.AuthContext(c), id); err != nil {
		failWith(c, h.log, "discontinue product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product discontinued", nil)
}

func (h *AdminHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	var body stockBody
	if err := c.ShouldBind(&body); err != nil {
		bindFailure(c, h.log, "adjust stock", err)
		return
	}

	product, err := h.catalog.AdjustStock(c.Request.Context(), middleware.AuthContext(c), id, *body.Delta)
	if err != nil {
		failWith(c, h.log, "adjust stock", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Stock adjusted", product)
}

// LowStock accepts an optional threshold; zero or absent uses the configured one.
func (h *AdminHandler) LowStock(c *gin.Context) {
	threshold := 0
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid threshold")
			return
		}
		threshold = n
	}

	products, err := h.catalog.ListLowStock(c.Request.Context(), middleware.AuthContext(c), threshold)
	if err != nil {
		failWith(c, h.log, "list low stock", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Low stock products", products)
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var body categoryBody
	if err := c.ShouldBind(&body); err != nil {
		bindFailure(c, h.log, "create category", err)
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), middleware.AuthContext(c), body.Description)
	if err != nil {
		failWith(c, h.log, "create category", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Category created successfully", category)
}

func (h *AdminHandler) CreateEmployee(c *gin.Context) {
	var body employeeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindFailure(c, h.log, "register employee", err)
		return
	}

	employee, err := h.auth.RegisterEmployee(c.Request.Context(), middleware.AuthContext(c), usecase.RegisterRequest{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Phone:    body.Phone,
		Role:     body.Role,
	})
	if err != nil {
		failWith(c, h.log, "register employee", err)
		return
	}
	h.log.Infof("Employee %d registered as %s", employee.ID, employee.Role)
	SuccessResponse(c, http.StatusCreated, "Employee registered successfully", employee)
}
