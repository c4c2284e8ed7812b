package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// CounterStateResponse is the single counter row.
type CounterStateResponse struct {
	Counter   domain.CounterState `json:"counter"`
	Timestamp time.Time           `json:"timestamp"`
}

// IDMappingsResponse is one page of submission key mappings, newest first.
type IDMappingsResponse struct {
	Mappings   []domain.IDMapping `json:"mappings"`
	Pagination Pagination         `json:"pagination"`
	Timestamp  time.Time          `json:"timestamp"`
}

const (
	defaultMappingPageSize = 50
	maxMappingPageSize     = 500
)

// GetConfig godoc
// @ID          getConfig
// @Summary     Read portal settings
// @Tags        Admin
// @Produce     json
// @Security    APIKey
// @Success     200  {object}  config.PortalSettings
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /config [get]
func (h *Handlers) GetConfig(c *gin.Context) {
	ok(c, http.StatusOK, h.settings.Snapshot())
}

// PutConfig godoc
// @ID          putConfig
// @Summary     Replace portal settings
// @Description Persists the settings file and swaps the snapshot used by new
// @Description browser sessions. Sessions already running are unaffected.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    APIKey
// @Param       body  body      config.PortalSettings  true  "New settings"
// @Success     200   {object}  config.PortalSettings
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /config [put]
func (h *Handlers) PutConfig(c *gin.Context) {
	var ps config.PortalSettings
	if err := c.ShouldBindJSON(&ps); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "LOGIN_URL (url), USERNAME and PASSWORD are required")
		return
	}
	if err := h.settings.Update(ps); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, h.settings.Snapshot())
}

// CounterState godoc
// @ID          counterState
// @Summary     Read the sequence counter
// @Tags        Admin
// @Produce     json
// @Security    APIKey
// @Success     200  {object}  handlers.CounterStateResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /db/counter-state [get]
func (h *Handlers) CounterState(c *gin.Context) {
	cs, err := h.records.CounterState(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CounterStateResponse{Counter: cs, Timestamp: time.Now().UTC()})
}

// ListIDMappings godoc
// @ID          listIDMappings
// @Summary     List submission key mappings
// @Tags        Admin
// @Produce     json
// @Security    APIKey
// @Param       page       query     int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query     int  false  "Items per page"  minimum(1) maximum(500) default(50)
// @Success     200        {object}  handlers.IDMappingsResponse
// @Failure     500        {object}  handlers.ErrorResponse
// @Router      /db/id-mappings [get]
func (h *Handlers) ListIDMappings(c *gin.Context) {
	page, size, _ := utils.NormalizePage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), defaultMappingPageSize),
		defaultMappingPageSize, maxMappingPageSize,
	)

	items, total, err := h.records.ListMappings(c.Request.Context(), page, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	ok(c, http.StatusOK, IDMappingsResponse{
		Mappings: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
		Timestamp: time.Now().UTC(),
	})
}
