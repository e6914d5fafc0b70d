package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"return-service/internal/service"
	"return-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// 15MB cap on uploaded photos
const maxUploadBytes = 15 << 20

// Handler contains HTTP handlers
type Handler struct {
	returnService *service.ReturnService
}

// NewHandler creates a new HTTP handler
func NewHandler(returnService *service.ReturnService) *Handler {
	return &Handler{
		returnService: returnService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/returns", h.processReturn)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// processReturn handles a return request: multipart form with email,
// password, and the product photo. Business-rule denials come back as 200
// with a REJECTED status; infrastructure failures as a generic 502 so a
// system outage is never mistaken for an actual denial.
func (h *Handler) processReturn(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "email and password are required",
		})
		return
	}

	req := &service.ProcessReturnRequest{
		Email:    email,
		Password: password,
	}

	if file, err := c.FormFile("image"); err == nil {
		if file.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "uploaded image too large",
			})
			return
		}

		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "uploaded image unreadable",
			})
			return
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "uploaded image unreadable",
			})
			return
		}
		req.Image = data
	}

	result, err := h.returnService.ProcessReturn(c.Request.Context(), req)
	if err != nil {
		util.GetLogger().Error("Return processing failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "return processing is temporarily unavailable, please try again later",
		})
		return
	}

	c.JSON(http.StatusOK, result)
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
