package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/projectmanager/backend/internal/middleware"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/internal/services"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/gorm"
)

type CommentsHandler struct {
	DB        *gorm.DB
	Relations *services.RelationService
}

func NewCommentsHandler(db *gorm.DB, relations *services.RelationService) *CommentsHandler {
	return &CommentsHandler{DB: db, Relations: relations}
}

func (h *CommentsHandler) List(c *fiber.Ctx) error {
	opts := utils.ParsePageOptions(c)

	query := utils.FilterLike(h.DB.Model(&models.Comment{}), "body", c.Query("body"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting comments")
	}
	if total == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no comments found")
	}

	var comments []models.Comment
	if err := utils.ApplyPage(query.Order("created_at DESC"), opts).Preload("Author").Find(&comments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing comments")
	}

	return utils.Paginated(c, "List of all comments.", "comments", comments, opts, total)
}

func (h *CommentsHandler) Get(c *fiber.Ctx) error {
	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.Preload("Author").Preload("Project").Preload("Document").First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching comment")
	}

	return utils.Success(c, fiber.StatusOK, "Comment found.", "comment", comment)
}

func (h *CommentsHandler) ByProject(c *fiber.Ctx) error {
	projectID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid project id")
	}

	var comments []models.Comment
	if err := h.DB.Where("project_id = ?", projectID).Order("created_at DESC").Preload("Author").Find(&comments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing comments")
	}
	if len(comments) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no comments found")
	}

	return utils.Success(c, fiber.StatusOK, "Comments for project.", "comments", comments)
}

func (h *CommentsHandler) ByDocument(c *fiber.Ctx) error {
	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var comments []models.Comment
	if err := h.DB.Where("document_id = ?", documentID).Order("created_at DESC").Preload("Author").Find(&comments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing comments")
	}
	if len(comments) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no comments found")
	}

	return utils.Success(c, fiber.StatusOK, "Comments for document.", "comments", comments)
}

type createCommentRequest struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Project  string  `json:"project"`
	Document *string `json:"document"`
}

// Create records a comment on a project, or on a document inside a project
// when a document id is supplied. The author is taken from the token, never
// from the request body.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	if identity == nil || identity.User == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title and body are required")
	}

	projectID, err := parseUUID(req.Project)
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

	comment := models.Comment{
		Title:     req.Title,
		Body:      req.Body,
		AuthorID:  identity.User.ID,
		ProjectID: project.ID,
		IsGlobal:  true,
	}

	if req.Document != nil && strings.TrimSpace(*req.Document) != "" {
		documentID, parseErr := parseUUID(*req.Document)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid document reference")
		}
		var document models.Document
		if err := h.DB.First(&document, "id = ? AND project_id = ?", documentID, project.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusBadRequest, "invalid document reference")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed validating document")
		}
		docID := documentID
		comment.DocumentID = &docID
		comment.IsGlobal = false
	}

	if err := h.Relations.CreateComment(c.Context(), &comment); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating comment")
	}

	return utils.Success(c, fiber.StatusCreated, "New comment created.", "result", comment)
}

type updateCommentRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

func (h *CommentsHandler) Update(c *fiber.Ctx) error {
	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	var req updateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return utils.Error(c, fiber.StatusBadRequest, "title cannot be empty")
		}
		updates["title"] = title
	}
	if req.Body != nil {
		body := strings.TrimSpace(*req.Body)
		if body == "" {
			return utils.Error(c, fiber.StatusBadRequest, "body cannot be empty")
		}
		updates["body"] = body
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Comment{}).Where("id = ?", comment.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating comment")
	}

	var updated models.Comment
	if err := h.DB.Preload("Author").First(&updated, "id = ?", comment.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated comment")
	}

	return utils.Success(c, fiber.StatusOK, "Comment updated.", "result", updated)
}

func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	if err := h.Relations.DeleteComment(c.Context(), &comment); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	return utils.Success(c, fiber.StatusOK, "Comment deleted.", "result", comment)
}
