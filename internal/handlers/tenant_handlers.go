package handlers

import (
	"net/http"

	"pgdesk/internal/common"
	"pgdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandlers exposes the tenancy lifecycle and read operations.
type TenantHandlers struct {
	tenancyService services.TenancyService
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(tenancyService services.TenancyService) *TenantHandlers {
	return &TenantHandlers{
		tenancyService: tenancyService,
	}
}

// OnboardTenant handles placing a new tenant on a bed (owner only)
func (h *TenantHandlers) OnboardTenant(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.OnboardTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenant, err := h.tenancyService.Onboard(c.Request().Context(), actor, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, tenant)
}

// ListTenantsRequest represents query parameters for listing tenants
type ListTenantsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListTenants handles the tenant summary listing (owner only)
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if actor.Role != common.RoleOwner {
		return common.SendForbiddenError(c, "Only owners can list tenants")
	}

	var req ListTenantsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	tenants, err := h.tenancyService.List(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list tenants")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   req.Limit,
		"offset":  req.Offset,
	})
}

// ListDefaulters handles the unpaid-past-due listing (owner only)
func (h *TenantHandlers) ListDefaulters(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if actor.Role != common.RoleOwner {
		return common.SendForbiddenError(c, "Only owners can list defaulters")
	}

	var req ListTenantsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	defaulters, err := h.tenancyService.Defaulters(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list defaulters")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"defaulters": defaulters,
	})
}

// GetTenant handles the stay-status read
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	tenant, err := h.tenancyService.GetByCode(c.Request().Context(), tenantCode)
	if err != nil {
		return common.SendNotFoundError(c, "Tenant")
	}

	return c.JSON(http.StatusOK, tenant)
}

// GetStayHistory handles the stay-history read
func (h *TenantHandlers) GetStayHistory(c echo.Context) error {
	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	history, err := h.tenancyService.StayHistory(c.Request().Context(), tenantCode)
	if err != nil {
		return common.SendNotFoundError(c, "Tenant")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenant_code":  tenantCode,
		"stay_history": history,
	})
}

// GetRoomByTenant handles the room-by-tenant read
func (h *TenantHandlers) GetRoomByTenant(c echo.Context) error {
	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	room, err := h.tenancyService.RoomByTenant(c.Request().Context(), tenantCode)
	if err != nil {
		return common.SendNotFoundError(c, "Room")
	}

	return c.JSON(http.StatusOK, room)
}

// UpdateTenant handles profile updates
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	var req services.UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenant, err := h.tenancyService.UpdateProfile(c.Request().Context(), actor, tenantCode, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant handles deleting a tenant record (owner only)
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	actor, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	if err := h.tenancyService.Delete(c.Request().Context(), actor, tenantCode); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
