package handlers

import (
	"net/http"

	"pgdesk/internal/common"
	"pgdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// VacateHandlers exposes the vacate/notice state machine.
type VacateHandlers struct {
	vacateService services.VacateService
}

func NewVacateHandlers(vacateService services.VacateService) *VacateHandlers {
	return &VacateHandlers{
		vacateService: vacateService,
	}
}

// RaiseVacate handles a tenant raising their own vacate
func (h *VacateHandlers) RaiseVacate(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.RaiseVacateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.TenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	result, err := h.vacateService.Raise(c.Request().Context(), actor, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, result)
}

// WithdrawVacateRequest carries the withdraw payload
type WithdrawVacateRequest struct {
	TenantCode string `json:"tenant_code"`
}

// WithdrawVacate handles a tenant withdrawing their vacate within the window
func (h *VacateHandlers) WithdrawVacate(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req WithdrawVacateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.TenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	tenant, err := h.vacateService.Withdraw(c.Request().Context(), actor, req.TenantCode)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, tenant)
}

// RemoveTenant handles an owner removing a tenant
func (h *VacateHandlers) RemoveTenant(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	var req services.RemoveTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	req.TenantCode = tenantCode

	result, err := h.vacateService.Remove(c.Request().Context(), actor, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, result)
}

// RetainTenant handles an owner reversing their own removal
func (h *VacateHandlers) RetainTenant(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	tenant, err := h.vacateService.Retain(c.Request().Context(), actor, tenantCode)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, tenant)
}
