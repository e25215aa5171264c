package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chucheritas/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PingFunc checks whether the store answers.
type PingFunc func(ctx context.Context) error

type StatusHandler struct {
	ping    PingFunc
	timeout time.Duration
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewStatusHandler(ping PingFunc, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *StatusHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &StatusHandler{
		ping:    ping,
		timeout: timeout,
		metrics: m,
		log:     logger,
	}
}

func (h *StatusHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/status", h.Status)
}

// Status always answers 200 so the app can report itself alive while the
// database is down.
func (h *StatusHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	up := h.probe(ctx) == nil
	if up {
		h.metrics.StoreUp.Set(1)
	} else {
		h.metrics.StoreUp.Set(0)
	}
	c.JSON(http.StatusOK, gin.H{
		"database": fmt.Sprintf("%t", up),
		"app":      "running",
	})
}

func (h *StatusHandler) probe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store probe panicked: %v", r)
		}
		if err != nil {
			h.log.Warnf("Status: database probe failed: %v", err)
		}
	}()
	if h.ping == nil {
		return fmt.Errorf("no store configured")
	}
	return h.ping(ctx)
}
