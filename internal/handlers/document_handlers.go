package handlers

import (
	"fmt"
	"net/http"
	"time"

	"pgdesk/internal/common"
	"pgdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// DocumentHandlers manages tenant KYC documents (id proofs) in object storage.
type DocumentHandlers struct {
	documentService services.DocumentService
	tenancyService  services.TenancyService
	bucket          string
}

// NewDocumentHandlers creates a new document handlers instance
func NewDocumentHandlers(documentService services.DocumentService, tenancyService services.TenancyService, bucket string) *DocumentHandlers {
	return &DocumentHandlers{
		documentService: documentService,
		tenancyService:  tenancyService,
		bucket:          bucket,
	}
}

// UploadDocument handles POST /tenants/:code/documents (owner only)
func (h *DocumentHandlers) UploadDocument(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := common.GetIdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if actor.Role != common.RoleOwner {
		return common.SendForbiddenError(c, "Only owners can upload tenant documents")
	}

	tenantCode := c.Param("code")
	if _, err := h.tenancyService.GetByCode(ctx, tenantCode); err != nil {
		return common.SendNotFoundError(c, "Tenant not found")
	}

	file, err := c.FormFile("document")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Document file is required")
	}

	// Id proofs are scans or photos, 5MB is plenty.
	const maxFileSize = 5 * 1024 * 1024
	if file.Size > maxFileSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File size exceeds maximum limit of 5MB")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to open document file")
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file content")
	}
	contentType := http.DetectContentType(buffer[:n])

	allowedTypes := map[string]bool{
		"image/jpeg":      true,
		"image/png":       true,
		"application/pdf": true,
	}
	if !allowedTypes[contentType] {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file type. Only JPEG, PNG, and PDF documents are allowed")
	}

	if _, err := src.Seek(0, 0); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to rewind file")
	}

	docType := c.FormValue("document_type")
	if docType == "" {
		docType = "id-proof"
	}
	// One object per tenant+type, re-uploads replace the previous proof.
	objectName := fmt.Sprintf("%s/%s", tenantCode, docType)

	if err := h.documentService.UploadDocument(ctx, h.bucket, objectName, src, file.Size, contentType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message":     "Document uploaded successfully",
		"object_name": objectName,
	})
}

// GetDocumentURL handles GET /tenants/:code/documents/:type, returning a
// short-lived presigned link instead of proxying the object.
func (h *DocumentHandlers) GetDocumentURL(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := common.GetIdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantCode := c.Param("code")
	docType := c.Param("type")

	tenant, err := h.tenancyService.GetByCode(ctx, tenantCode)
	if err != nil {
		return common.SendNotFoundError(c, "Tenant not found")
	}
	if actor.Role != common.RoleOwner && actor.Phone != tenant.Phone {
		return common.SendForbiddenError(c, "You can only access your own documents")
	}

	objectName := fmt.Sprintf("%s/%s", tenantCode, docType)
	url, err := h.documentService.GetPresignedURL(h.bucket, objectName, 15*time.Minute)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url":        url,
		"expires_in": "15m",
	})
}

// DeleteDocument handles DELETE /tenants/:code/documents/:type (owner only)
func (h *DocumentHandlers) DeleteDocument(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := common.GetIdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if actor.Role != common.RoleOwner {
		return common.SendForbiddenError(c, "Only owners can delete tenant documents")
	}

	tenantCode := c.Param("code")
	docType := c.Param("type")

	objectName := fmt.Sprintf("%s/%s", tenantCode, docType)
	if err := h.documentService.DeleteDocument(ctx, h.bucket, objectName); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Document deleted",
	})
}
