package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookmarket-service/internal/service"
	"bookmarket-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services the handlers call
type Services struct {
	Auth           *service.AuthService
	Submissions    *service.SubmissionService
	Orders         *service.OrderService
	Catalog        *service.CatalogService
	Cart           *service.CartService
	PaymentMethods *service.PaymentMethodService
}

// Handler contains HTTP handlers
type Handler struct {
	svc      Services
	sessions SessionResolver
	checks   map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. checks are consulted by /ready.
func NewHandler(svc Services, checks map[string]Pinger) *Handler {
	return &Handler{
		svc:      svc,
		sessions: svc.Auth,
		checks:   checks,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sessions", h.login)
		v1.GET("/books", h.searchBooks)
		v1.GET("/books/:id", h.getBook)
	}

	authed := v1.Group("", requireSession(h.sessions))
	{
		authed.DELETE("/sessions", h.logout)

		authed.POST("/submissions", h.createSubmission)
		authed.GET("/submissions", h.listMySubmissions)
		authed.GET("/submissions/:id", h.getSubmission)
		authed.POST("/submissions/:id/negotiate", h.customerNegotiate)

		authed.GET("/cart", h.getCart)
		authed.POST("/cart", h.addToCart)
		authed.DELETE("/cart/:bookId", h.removeFromCart)

		authed.POST("/checkout", h.checkout)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)

		authed.GET("/payment-methods", h.listPaymentMethods)
		authed.POST("/payment-methods", h.addPaymentMethod)
		authed.DELETE("/payment-methods/:id", h.deletePaymentMethod)
	}

	admin := authed.Group("/admin", requireStaff())
	{
		admin.GET("/submissions", h.listSubmissionsByStatus)
		admin.POST("/submissions/:id/offers", h.adminNegotiate)
		admin.POST("/submissions/:id/approve", h.approveSubmission)
		admin.POST("/submissions/:id/reject", h.rejectSubmission)
		admin.POST("/books", h.createBook)
		admin.POST("/books/:id/restock", h.restockBook)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers a ping
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

var statusByKind = map[service.Kind]int{
	service.KindInvalidInput:     http.StatusBadRequest,
	service.KindInvalidOperation: http.StatusBadRequest,
	service.KindNotFound:         http.StatusNotFound,
	service.KindForbidden:        http.StatusForbidden,
	service.KindConflict:         http.StatusConflict,
	service.KindUnauthenticated:  http.StatusUnauthorized,
}

// respondError writes a typed failure with its status, anything else as 500
func (h *Handler) respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		status, ok := statusByKind[svcErr.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   string(svcErr.Kind),
			"details": svcErr.Message,
		})
		return
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal",
		"details": "internal server error",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(service.KindInvalidInput),
		"details": err.Error(),
	})
}

// paramID parses a positive numeric path parameter, writing a 400 if it is not one
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(service.KindInvalidInput),
			"details": "invalid " + name,
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
