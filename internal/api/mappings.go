package api

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin"

	"luongimport/internal/model"
	"luongimport/internal/parser"
)

var configNameRe = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// PutMappingsRequest replacement mapping list of one configuration
type PutMappingsRequest struct {
	Mappings []model.ColumnMapping `json:"mappings"`
}

// ListMappingConfigs names of stored configurations
// GET /api/mappings
func (h *Handler) ListMappingConfigs(c *gin.Context) {
	names, err := h.store.ListConfigNames()
	if err != nil {
		h.requestLogger(c).Error("failed to list mapping configs", "error", err)
		errorResponse(c, CodeInternal, "failed to list mapping configurations")
		return
	}
	if names == nil {
		names = []string{}
	}
	success(c, gin.H{"configs": names})
}

// GetMappings mappings of one configuration
// GET /api/mappings/:config
func (h *Handler) GetMappings(c *gin.Context) {
	name := c.Param("config")
	if !configNameRe.MatchString(name) {
		errorResponse(c, CodeBadRequest, "invalid configuration name")
		return
	}
	mappings, err := h.store.ListMappings(name)
	if err != nil {
		h.requestLogger(c).Error("failed to list mappings", "config", name, "error", err)
		errorResponse(c, CodeInternal, "failed to load mapping configuration")
		return
	}
	if len(mappings) == 0 {
		errorResponse(c, CodeNotFound, fmt.Sprintf("mapping configuration %q not found", name))
		return
	}
	success(c, gin.H{"config": name, "mappings": mappings})
}

// PutMappings replaces a configuration
// PUT /api/mappings/:config
func (h *Handler) PutMappings(c *gin.Context) {
	name := c.Param("config")
	if !configNameRe.MatchString(name) {
		errorResponse(c, CodeBadRequest, "invalid configuration name")
		return
	}

	var req PutMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := parser.ValidateMappings(h.validate, req.Mappings); err != nil {
		errorResponse(c, CodeBadRequest, err.Error())
		return
	}

	for i := range req.Mappings {
		req.Mappings[i].ConfigName = name
	}
	if err := h.store.ReplaceMappings(name, req.Mappings); err != nil {
		h.requestLogger(c).Error("failed to replace mappings", "config", name, "error", err)
		errorResponse(c, CodeInternal, "failed to save mapping configuration")
		return
	}
	h.requestLogger(c).Info("mapping configuration replaced", "config", name, "mappings", len(req.Mappings))
	success(c, gin.H{"config": name, "mappings": req.Mappings})
}
