package delivery

import (
	"errors"
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

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	useCase usecase.AuthUseCase
	cookie  CookieOptions
	metrics *metrics.Metrics
	limiter gin.HandlerFunc
	log     *logrus.Logger
}

// NewAuthHandler wires the credential endpoints. limiter may be nil.
func NewAuthHandler(uc usecase.AuthUseCase, cookie CookieOptions, m *metrics.Metrics, limiter gin.HandlerFunc, logger *logrus.Logger) *AuthHandler {
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}
	return &AuthHandler{
		useCase: uc,
		cookie:  cookie,
		metrics: m,
		limiter: limiter,
		log:     logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", h.LoginPage)
	router.POST("/login", h.limiter, h.Login)
	router.POST("/register", h.limiter, h.Register)
	router.POST("/logout", h.Logout)
	router.GET("/logout", h.Logout)
	router.GET("/me", middleware.RequireRoles(h.log, domain.RoleCustomer, domain.RoleAdministrator, domain.RoleCourier), h.Me)
}

type credentialsForm struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

type registerForm struct {
	Name     string `form:"name" json:"name" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
	Phone    string `form:"phone" json:"phone"`
}

// LoginPage is where unauthenticated browsers land.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	actx := middleware.AuthContext(c)
	if actx.IsAuthenticated() {
		SuccessResponse(c, http.StatusOK, "Already logged in", actx.Principal)
		return
	}
	SuccessResponse(c, http.StatusOK, "Please log in with your email and password", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		bindFailure(c, h.log, "login", err)
		return
	}

	session, err := h.useCase.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrUnauthenticated) {
			outcome = "rejected"
		}
		h.metrics.Logins.WithLabelValues(outcome).Inc()
		if errors.Is(err, domain.ErrUnauthenticated) {
			h.log.Warnf("Rejected login for %s", strings.ToLower(strings.TrimSpace(form.Email)))
			ErrorResponse(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		failWith(c, h.log, "log in", err)
		return
	}
	h.metrics.Logins.WithLabelValues("ok").Inc()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, session.Token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	h.log.Infof("Principal %d logged in as %s", session.Principal.ID, session.Principal.Role)

	if middleware.WantsJSON(c) {
		SuccessResponse(c, http.StatusOK, "Logged in successfully", session)
		return
	}
	c.Redirect(http.StatusSeeOther, homeFor(session.Principal.Role))
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		bindFailure(c, h.log, "register", err)
		return
	}

	principal, err := h.useCase.RegisterCustomer(c.Request.Context(), usecase.RegisterRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Phone:    form.Phone,
	})
	if err != nil {
		failWith(c, h.log, "register customer", err)
		return
	}

	h.log.Infof("Customer %d registered", principal.ID)
	SuccessResponse(c, http.StatusCreated, "Registered successfully", principal)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.Name); err == nil && token != "" {
		if err := h.useCase.Logout(c.Request.Context(), token); err != nil {
			h.log.Warnf("Failed to delete session on logout: %v", err)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)

	if middleware.WantsJSON(c) {
		SuccessResponse(c, http.StatusOK, "Logged out", nil)
		return
	}
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

func (h *AuthHandler) Me(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Current user", middleware.AuthContext(c).Principal)
}

func homeFor(role domain.Role) string {
	switch role {
	case domain.RoleAdministrator:
		return "/admin/products"
	case domain.RoleCourier:
		return "/courier/orders"
	default:
		return "/products"
	}
}
