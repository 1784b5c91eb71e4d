// Package api exposes the import engine over HTTP with gin.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"luongimport/internal/config"
	"luongimport/internal/importer"
	"luongimport/internal/logger"
	"luongimport/internal/store"
)

// Context keys set by the request middleware
const (
	ContextRequestID = "request_id"
	HeaderRequestID  = "X-Request-ID"
	HeaderActor      = "X-Actor"
)

// Error codes of the response envelope
const (
	CodeOK           = 0
	CodeBadRequest   = 1001
	CodeBadFile      = 1002
	CodeFileTooLarge = 1003
	CodeNotFound     = 2001
	CodeInternal     = 5001
	CodeTimeout      = 5002
)

// Handler HTTP handlers
type Handler struct {
	store       *store.Store
	coordinator *importer.Coordinator
	cfg         config.ImportConfig
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewHandler creates the handlers
func NewHandler(st *store.Store, coordinator *importer.Coordinator, cfg config.ImportConfig, l *slog.Logger) *Handler {
	if l == nil {
		l = logger.Discard()
	}
	return &Handler{
		store:       st,
		coordinator: coordinator,
		cfg:         cfg,
		logger:      l,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the /api routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)

	router.POST("/import/attendance", h.ImportAttendance)
	router.POST("/import/employees", h.ImportEmployees)
	router.POST("/import/payroll", h.ImportPayroll)

	router.GET("/mappings", h.ListMappingConfigs)
	router.GET("/mappings/:config", h.GetMappings)
	router.PUT("/mappings/:config", h.PutMappings)

	router.GET("/sessions/:id", h.GetSession)
}

// Response common envelope
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// requestContext request id and actor of the current request
func requestContext(c *gin.Context) importer.RequestContext {
	return importer.RequestContext{
		RequestID: c.GetString(ContextRequestID),
		Actor:     c.GetHeader(HeaderActor),
	}
}

func (h *Handler) requestLogger(c *gin.Context) *slog.Logger {
	if id := c.GetString(ContextRequestID); id != "" {
		return logger.WithRequestID(h.logger, id)
	}
	return h.logger
}
