package handlers

import (
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/projectmanager/backend/internal/middleware"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/internal/services"
	"github.com/projectmanager/backend/internal/storage"
	"github.com/projectmanager/backend/pkg/logger"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/gorm"
)

type DocumentsHandler struct {
	DB          *gorm.DB
	Storage     storage.ObjectStore
	Relations   *services.RelationService
	MaxFileSize int64
}

func NewDocumentsHandler(db *gorm.DB, store storage.ObjectStore, relations *services.RelationService, maxFileSize int64) *DocumentsHandler {
	return &DocumentsHandler{DB: db, Storage: store, Relations: relations, MaxFileSize: maxFileSize}
}

func (h *DocumentsHandler) List(c *fiber.Ctx) error {
	opts := utils.ParsePageOptions(c)

	query := utils.FilterLike(h.DB.Model(&models.Document{}), "description", c.Query("description"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting documents")
	}
	if total == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no documents found")
	}

	var documents []models.Document
	if err := utils.ApplyPage(query.Order("created_at DESC"), opts).Find(&documents).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}

	return utils.Paginated(c, "List of all documents.", "documents", documents, opts, total)
}

func (h *DocumentsHandler) Get(c *fiber.Ctx) error {
	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var document models.Document
	if err := h.DB.Preload("Project").First(&document, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching document")
	}

	return utils.Success(c, fiber.StatusOK, "Document found.", "document", document)
}

func (h *DocumentsHandler) ByProject(c *fiber.Ctx) error {
	projectID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid project id")
	}

	var documents []models.Document
	if err := h.DB.Where("project_id = ?", projectID).Order("created_at DESC").Find(&documents).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}
	if len(documents) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no documents found")
	}

	return utils.Success(c, fiber.StatusOK, "Documents for project.", "documents", documents)
}

// Create accepts a multipart upload: the payload in the "file" field, the
// owning project id in the "project" form value. The payload lands in
// object storage; the metadata row and the project link are written by the
// relation service.
func (h *DocumentsHandler) Create(c *fiber.Ctx) error {
	projectID, err := parseUUID(c.FormValue("project"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "project is required")
	}

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "project not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating project")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	if h.MaxFileSize > 0 && fileHeader.Size > h.MaxFileSize {
		return utils.Error(c, fiber.StatusBadRequest, "file exceeds maximum allowed size")
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if !isAllowedMimeType(contentType) {
		return utils.Error(c, fiber.StatusBadRequest, "file type not allowed")
	}

	accepted := false
	if raw := strings.TrimSpace(c.FormValue("accepted")); raw != "" {
		parsed, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid accepted value")
		}
		accepted = parsed
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	objectName := fmt.Sprintf("%s/%s/%s", project.ID.String(), uuid.New().String(), filename)
	if err := h.Storage.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
	}

	document := models.Document{
		Description: strings.TrimSpace(c.FormValue("description")),
		ProjectID:   project.ID,
		FileName:    filename,
		MimeType:    contentType,
		Size:        fileHeader.Size,
		StoragePath: objectName,
		Accepted:    accepted,
	}

	if err := h.Relations.CreateDocument(c.Context(), &document); err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating document")
	}

	if user := middleware.CurrentUser(c); user != nil {
		logger.InfoWithUser(user.ID.String(), "document_created", map[string]interface{}{
			"document_id": document.ID.String(),
			"project_id":  project.ID.String(),
			"file_name":   filename,
			"file_size":   fileHeader.Size,
			"mime_type":   contentType,
		})
	}

	return utils.Success(c, fiber.StatusCreated, "New document created.", "result", document)
}

// File streams the stored payload back with the recorded content type.
func (h *DocumentsHandler) File(c *fiber.Ctx) error {
	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var document models.Document
	if err := h.DB.First(&document, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	obj, err := h.Storage.Download(c.Context(), document.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading stored file")
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = document.MimeType
	}

	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", document.FileName))
	return c.SendStream(obj.Reader, int(obj.Size))
}

type updateDocumentRequest struct {
	Description *string `json:"description"`
	Accepted    *bool   `json:"accepted"`
}

func (h *DocumentsHandler) Update(c *fiber.Ctx) error {
	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var document models.Document
	if err := h.DB.First(&document, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	var req updateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Accepted != nil {
		updates["accepted"] = *req.Accepted
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Document{}).Where("id = ?", document.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating document")
	}

	var updated models.Document
	if err := h.DB.First(&updated, "id = ?", document.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated document")
	}

	return utils.Success(c, fiber.StatusOK, "Document updated.", "result", updated)
}

func (h *DocumentsHandler) Delete(c *fiber.Ctx) error {
	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var document models.Document
	if err := h.DB.First(&document, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	if document.StoragePath != "" {
		if err := h.Storage.Delete(c.Context(), document.StoragePath); err != nil {
			logger.Error("document_object_delete_failed", err, map[string]interface{}{
				"document_id":  document.ID.String(),
				"storage_path": document.StoragePath,
			})
		}
	}

	if err := h.Relations.DeleteDocument(c.Context(), &document); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	return utils.Success(c, fiber.StatusOK, "Document deleted.", "result", document)
}
