package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chucheritas/internal/domain"
	"chucheritas/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

func mapErrorToStatus(err error) int {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrEmptyOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stockErr),
		errors.Is(err, domain.ErrProductInactive),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown to the caller. Server side failures never
// leak their cause.
func publicMessage(err error) string {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return fmt.Sprintf("Insufficient stock. Available: %d", stockErr.Available)
	case errors.Is(err, domain.ErrProductInactive):
		return "This product is no longer available"
	case errors.Is(err, domain.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, domain.ErrCartItemNotFound):
		return "Product is not in your cart"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "This email is already registered"
	case errors.Is(err, domain.ErrDuplicate):
		return "A record with the same value already exists"
	case errors.Is(err, domain.ErrEmptyOrder):
		return "Your order has no items"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "That status change is not allowed for this order"
	case errors.Is(err, domain.ErrValidation):
		return capitalize(strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Please log in to continue"
	case errors.Is(err, domain.ErrForbidden):
		return "You do not have permission to perform this action"
	case errors.Is(err, domain.ErrNotFound):
		return "Not found"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Service temporarily unavailable, please try again later"
	default:
		return "Internal server error"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// failWith logs the error and writes the envelope.
func failWith(c *gin.Context, log *logrus.Logger, action string, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("Failed to %s: %v", action, err)
	} else {
		log.Warnf("Failed to %s: %v", action, err)
	}
	ErrorResponse(c, status, publicMessage(err))
}

// bindFailure answers a request whose body did not pass binding.
func bindFailure(c *gin.Context, log *logrus.Logger, action string, err error) {
	log.Warnf("Failed to bind request for %s: %v", action, err)
	ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
}

func parseID(c *gin.Context, param string) (int, bool) {
	id, err := strconv.Atoi(c.Param(param))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// cartResult answers a cart mutation. Fetch calls get JSON; plain form posts
// are redirected back with a notice.
func cartResult(c *gin.Context, err error, okMessage string, count int) {
	if middleware.WantsJSON(c) {
		if err != nil {
			body := gin.H{"status": "error", "msg": publicMessage(err), "count": count}
			var stockErr *domain.InsufficientStockError
			if errors.As(err, &stockErr) {
				body["available"] = stockErr.Available
			}
			c.JSON(mapErrorToStatus(err), body)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "msg": okMessage, "count": count})
		return
	}

	notice := okMessage
	if err != nil {
		notice = publicMessage(err)
	}
	target := url.URL{Path: backPath(c), RawQuery: url.Values{"notice": {notice}}.Encode()}
	c.Redirect(http.StatusSeeOther, target.String())
}

// backPath returns the referring path when it belongs to this host.
func backPath(c *gin.Context) string {
	ref, err := url.Parse(c.GetHeader("Referer"))
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") {
		return "/cart"
	}
	if ref.Host != "" && ref.Host != c.Request.Host {
		return "/cart"
	}
	return ref.Path
}
