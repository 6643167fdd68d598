package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/service"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/response"
)

// LocationHandler wires institute location management to HTTP routes.
type LocationHandler struct {
	service *service.LocationService
}

// NewLocationHandler constructs a new LocationHandler.
func NewLocationHandler(svc *service.LocationService) *LocationHandler {
	return &LocationHandler{service: svc}
}

// List godoc
// @Summary List institute locations
// @Tags Locations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations [get]
func (h *LocationHandler) List(c *gin.Context) {
	locations, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, nil)
}

// Get godoc
// @Summary Get location detail
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Router /locations/{id} [get]
func (h *LocationHandler) Get(c *gin.Context) {
	location, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Create godoc
// @Summary Create institute location
// @Tags Locations
// @Accept json
// @Produce json
// @Param payload body service.LocationRequest true "Location payload"
// @Success 201 {object} response.Envelope
// @Router /locations [post]
func (h *LocationHandler) Create(c *gin.Context) {
	var req service.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid location payload"))
		return
	}
	location, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, location)
}

// Update godoc
// @Summary Update institute location
// @Tags Locations
// @Accept json
// @Produce json
// @Param id path string true "Location ID"
// @Param payload body service.LocationRequest true "Location payload"
// @Success 200 {object} response.Envelope
// @Router /locations/{id} [put]
func (h *LocationHandler) Update(c *gin.Context) {
	var req service.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid location payload"))
		return
	}
	location, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Delete godoc
// @Summary Delete institute location
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 204 {object} response.Envelope
// @Router /locations/{id} [delete]
func (h *LocationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
