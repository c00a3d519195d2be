package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"configurator-service/internal/middleware"
	"configurator-service/internal/models"
	"configurator-service/internal/repository"
	"configurator-service/internal/services"
)

// ConfiguratorHandler exposes the configuration session API
type ConfiguratorHandler struct {
	service *services.ConfiguratorService
}

func NewConfiguratorHandler(service *services.ConfiguratorService) *ConfiguratorHandler {
	return &ConfiguratorHandler{service: service}
}

func sessionResponse(session *models.Session) models.SuccessResponse {
	return models.SuccessResponse{
		Success: true,
		Data: models.SessionResponse{
			SessionID: session.ID,
			ProductID: session.ProductID,
			Snapshot:  session.Snapshot,
		},
	}
}

func (h *ConfiguratorHandler) respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationFailedError
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "SESSION_NOT_FOUND",
				Message: "Configuration session not found or expired",
			},
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_FAILED",
				Message: validationErr.Error(),
			},
		})
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CONFIGURATOR_ERROR",
				Message: err.Error(),
			},
		})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		},
	})
}

// StartSession godoc
// @Summary Start a configuration session
// @Description Loads the product's configurator descriptor and creates a session seeded from its defaults
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param request body models.StartSessionRequest true "Product to configure"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /configurator/sessions [post]
func (h *ConfiguratorHandler) StartSession(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.StartSession(c.Request.Context(), tenantID, req.ProductID)
	if err != nil {
		status := http.StatusBadGateway
		code := "CATALOG_ERROR"
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
			code = "PRODUCT_NOT_FOUND"
		}
		c.JSON(status, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    code,
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(session))
}

// GetSession godoc
// @Summary Get the current session snapshot
// @Tags configurator
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id} [get]
func (h *ConfiguratorHandler) GetSession(c *gin.Context) {
	session, err := h.service.GetSession(middleware.GetTenantID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// SetOption godoc
// @Summary Set or clear one option value
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Param request body models.SetOptionRequest true "Option selection"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/option [put]
func (h *ConfiguratorHandler) SetOption(c *gin.Context) {
	var req models.SetOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.SetOption(middleware.GetTenantID(c), c.Param("id"), req.OptionID, req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// SetMaterial godoc
// @Summary Select a material
// @Description An incompatible material is auto-corrected during recompute and reported as an issue
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Param request body models.SetMaterialRequest true "Material selection"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/material [put]
func (h *ConfiguratorHandler) SetMaterial(c *gin.Context) {
	var req models.SetMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.SetMaterial(middleware.GetTenantID(c), c.Param("id"), req.MaterialID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// SetPrintMethod godoc
// @Summary Select a print method
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Param request body models.SetPrintMethodRequest true "Print method selection"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/print-method [put]
func (h *ConfiguratorHandler) SetPrintMethod(c *gin.Context) {
	var req models.SetPrintMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.SetPrintMethod(middleware.GetTenantID(c), c.Param("id"), req.PrintMethodID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// SetFinishing godoc
// @Summary Replace the selected finishing set
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Param request body models.SetFinishingRequest true "Finishing selection"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/finishing [put]
func (h *ConfiguratorHandler) SetFinishing(c *gin.Context) {
	var req models.SetFinishingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.SetFinishing(middleware.GetTenantID(c), c.Param("id"), req.FinishingIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// SetQuantity godoc
// @Summary Set the requested quantity
// @Description Zero is accepted and reflected in the snapshot but blocks commit until corrected
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Param request body models.SetQuantityRequest true "Quantity"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/quantity [put]
func (h *ConfiguratorHandler) SetQuantity(c *gin.Context) {
	var req models.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.SetQuantity(middleware.GetTenantID(c), c.Param("id"), req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// SetDimension godoc
// @Summary Set the requested dimension
// @Description Width and height both zero clear the dimension
// @Tags configurator
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Param request body models.SetDimensionRequest true "Dimension"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/dimension [put]
func (h *ConfiguratorHandler) SetDimension(c *gin.Context) {
	var req models.SetDimensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.service.SetDimension(middleware.GetTenantID(c), c.Param("id"), req.Width, req.Height, req.Unit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// Validate godoc
// @Summary Check whether the configuration can be committed
// @Tags configurator
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/validate [post]
func (h *ConfiguratorHandler) Validate(c *gin.Context) {
	result, err := h.service.Validate(middleware.GetTenantID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}

// Commit godoc
// @Summary Commit the configuration to the cart
// @Description Validates the session, creates the cart line and closes the session
// @Tags configurator
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/commit [post]
func (h *ConfiguratorHandler) Commit(c *gin.Context) {
	result, err := h.service.Commit(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}

// Upsells godoc
// @Summary Get upsell suggestions for the current configuration
// @Tags configurator
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id}/upsells [get]
func (h *ConfiguratorHandler) Upsells(c *gin.Context) {
	result, err := h.service.Upsells(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}

// DeleteSession godoc
// @Summary Abandon a configuration session
// @Tags configurator
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Session ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /configurator/sessions/{id} [delete]
func (h *ConfiguratorHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(middleware.GetTenantID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	message := "Session deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}
