package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"luongimport/internal/store"
)

// StatusResponse service status
type StatusResponse struct {
	Database       string         `json:"database"`
	MappingConfigs []string       `json:"mappingConfigs"`
	Sessions       map[string]int `json:"sessions"`
	LastSessionID  string         `json:"lastSessionId,omitempty"`
	MaxUploadMB    int            `json:"maxUploadMb"`
	TimeoutSeconds int            `json:"timeoutSeconds"`
}

// GetStatus service status
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Database:       "ok",
		MappingConfigs: []string{},
		Sessions:       map[string]int{},
		MaxUploadMB:    h.cfg.MaxUploadMB,
		TimeoutSeconds: h.cfg.TimeoutSeconds,
	}

	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.requestLogger(c).Error("database ping failed", "error", err)
		resp.Database = "unavailable"
		success(c, resp)
		return
	}

	if names, err := h.store.ListConfigNames(); err == nil && names != nil {
		resp.MappingConfigs = names
	}
	if counts, err := h.store.CountImportSessions(); err == nil {
		resp.Sessions = counts
	}
	if settings, err := h.store.GetAllSettings(); err == nil {
		resp.LastSessionID = settings[store.SettingLastSessionID]
	}
	success(c, resp)
}

// GetSession one import session
// GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.store.GetImportSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			errorResponse(c, CodeNotFound, err.Error())
			return
		}
		h.requestLogger(c).Error("failed to load session", "error", err)
		errorResponse(c, CodeInternal, "failed to load session")
		return
	}
	success(c, sess)
}
