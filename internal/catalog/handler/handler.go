package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"battbot_backend/internal/catalog/service"
	"battbot_backend/internal/catalog/transport"
	"battbot_backend/platform/httpkit"
	"battbot_backend/platform/validator"
)

// Handler handles HTTP requests for the battery catalog.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// New creates a new catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SearchBatteries finds batteries for a vehicle.
// GET /api/v1/catalog/batteries/search
func (h *Handler) SearchBatteries(c *gin.Context) {
	var req transport.VehicleSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	results, err := h.svc.SearchBatteriesForVehicle(c.Request.Context(), req.Make, req.Model, req.Year)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"batteries_found": results})
}

// ListBatteries retrieves all batteries.
// GET /api/v1/catalog/batteries
func (h *Handler) ListBatteries(c *gin.Context) {
	result, err := h.svc.ListBatteries(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetBatteryByID retrieves a battery by ID.
// GET /api/v1/catalog/batteries/:id
func (h *Handler) GetBatteryByID(c *gin.Context) {
	result, err := h.svc.GetBatteryByID(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpsertBattery creates or replaces a battery.
// PUT /api/v1/admin/catalog/batteries
func (h *Handler) UpsertBattery(c *gin.Context) {
	var req transport.UpsertBatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpsertBattery(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteBattery removes a battery.
// DELETE /api/v1/admin/catalog/batteries/:id
func (h *Handler) DeleteBattery(c *gin.Context) {
	if err := h.svc.DeleteBattery(c.Request.Context(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateFitment creates a vehicle configuration.
// POST /api/v1/admin/catalog/fitments
func (h *Handler) CreateFitment(c *gin.Context) {
	var req transport.CreateFitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateFitment(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListFitments retrieves all vehicle configurations.
// GET /api/v1/catalog/fitments
func (h *Handler) ListFitments(c *gin.Context) {
	result, err := h.svc.ListFitments(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteFitment removes a vehicle configuration.
// DELETE /api/v1/admin/catalog/fitments/:id
func (h *Handler) DeleteFitment(c *gin.Context) {
	fitmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.DeleteFitment(c.Request.Context(), fitmentID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// LinkBattery links a battery to a fitment.
// POST /api/v1/admin/catalog/fitments/:id/batteries
func (h *Handler) LinkBattery(c *gin.Context) {
	fitmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.LinkBatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.LinkBatteryToFitment(c.Request.Context(), req.BatteryID, fitmentID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// UnlinkBattery removes a battery-fitment link.
// DELETE /api/v1/admin/catalog/fitments/:id/batteries/:batteryId
func (h *Handler) UnlinkBattery(c *gin.Context) {
	fitmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.UnlinkBatteryFromFitment(c.Request.Context(), c.Param("batteryId"), fitmentID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ComputeFinancing calculates financing plans for a price.
// GET /api/v1/catalog/financing/plans
func (h *Handler) ComputeFinancing(c *gin.Context) {
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid price", nil)
		return
	}

	plans, err := h.svc.ComputeFinancingPlans(c.Request.Context(), c.Query("provider"), price)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"plans": plans})
}

// ListFinancingRules retrieves rules for a provider.
// GET /api/v1/admin/catalog/financing-rules
func (h *Handler) ListFinancingRules(c *gin.Context) {
	result, err := h.svc.ListFinancingRules(c.Request.Context(), c.Query("provider"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpsertFinancingRule creates or replaces a financing rule.
// PUT /api/v1/admin/catalog/financing-rules
func (h *Handler) UpsertFinancingRule(c *gin.Context) {
	var req transport.UpsertFinancingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpsertFinancingRule(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ReplaceFinancingRules swaps a provider's entire rule set.
// PUT /api/v1/admin/catalog/financing-rules/replace
func (h *Handler) ReplaceFinancingRules(c *gin.Context) {
	var req transport.ReplaceFinancingRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ReplaceFinancingRules(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteFinancingRule removes a financing rule.
// DELETE /api/v1/admin/catalog/financing-rules/:id
func (h *Handler) DeleteFinancingRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.DeleteFinancingRule(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
