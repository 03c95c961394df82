package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/gorm"
)

type ProjectsHandler struct {
	DB *gorm.DB
}

func NewProjectsHandler(db *gorm.DB) *ProjectsHandler {
	return &ProjectsHandler{DB: db}
}

func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	opts := utils.ParsePageOptions(c)

	query := utils.FilterLike(h.DB.Model(&models.Project{}), "title", c.Query("title"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting projects")
	}
	if total == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no projects found")
	}

	var projects []models.Project
	if err := utils.ApplyPage(query.Order("created_at DESC"), opts).Find(&projects).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing projects")
	}

	return utils.Paginated(c, "List of all projects.", "projects", projects, opts, total)
}

// Titles returns the title strings only, for pickers.
func (h *ProjectsHandler) Titles(c *fiber.Ctx) error {
	var titles []string
	if err := h.DB.Model(&models.Project{}).Order("title ASC").Pluck("title", &titles).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing project titles")
	}
	if len(titles) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no projects found")
	}

	return utils.Success(c, fiber.StatusOK, "List of all project titles.", "titles", titles)
}

func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	projectID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid project id")
	}

	var project models.Project
	err = h.DB.
		Preload("Manager").
		Preload("Company").
		Preload("Users").
		Preload("Documents").
		Preload("Comments").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "project not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching project")
	}

	return utils.Success(c, fiber.StatusOK, "Project found.", "project", project)
}

// ByUser lists projects a user is a member of.
func (h *ProjectsHandler) ByUser(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var projects []models.Project
	err = h.DB.
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing projects")
	}
	if len(projects) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no projects found")
	}

	return utils.Success(c, fiber.StatusOK, "Projects for user.", "projects", projects)
}

func (h *ProjectsHandler) ByCompany(c *fiber.Ctx) error {
	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var projects []models.Project
	if err := h.DB.Where("company_id = ?", companyID).Order("created_at DESC").Find(&projects).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing projects")
	}
	if len(projects) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no projects found")
	}

	return utils.Success(c, fiber.StatusOK, "Projects for company.", "projects", projects)
}

type createProjectRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Manager     *string    `json:"manager"`
	ProjectType string     `json:"projectType"`
	ProjectCode string     `json:"projectCode"`
	Company     *string    `json:"company"`
	Users       []string   `json:"users"`
	Published   bool       `json:"published"`
}

func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "project title not given")
	}

	var existing models.Project
	err := h.DB.First(&existing, "title = ?", req.Title).Error
	if err == nil {
		return utils.Error(c, fiber.StatusConflict, "project with given title already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing project")
	}

	project := models.Project{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		ProjectType: strings.TrimSpace(req.ProjectType),
		ProjectCode: strings.TrimSpace(req.ProjectCode),
		Published:   req.Published,
	}

	if req.Manager != nil && strings.TrimSpace(*req.Manager) != "" {
		managerID, err := parseUUID(*req.Manager)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid manager reference")
		}
		var manager models.User
		if err := h.DB.First(&manager, "id = ?", managerID).Error; err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid manager reference")
		}
		project.ManagerID = &managerID
	}

	if req.Company != nil && strings.TrimSpace(*req.Company) != "" {
		companyID, err := parseUUID(*req.Company)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid company reference")
		}
		var company models.Company
		if err := h.DB.First(&company, "id = ?", companyID).Error; err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid company reference")
		}
		project.CompanyID = &companyID
	}

	members, err := h.loadMembers(req.Users)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user reference")
	}
	project.Users = members

	if err := h.DB.Create(&project).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating project")
	}

	return utils.Success(c, fiber.StatusCreated, "New project created.", "result", project)
}

type updateProjectRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	ProjectType *string    `json:"projectType"`
	ProjectCode *string    `json:"projectCode"`
	Published   *bool      `json:"published"`
	Finished    *bool      `json:"finished"`
	Users       *[]string  `json:"users"`
}

func (h *ProjectsHandler) Update(c *fiber.Ctx) error {
	projectID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid project id")
	}

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "project not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading project")
	}

	var req updateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		value := strings.TrimSpace(*req.Title)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "title cannot be empty")
		}
		if value != project.Title {
			var count int64
			if err := h.DB.Model(&models.Project{}).Where("title = ? AND id <> ?", value, project.ID).Count(&count).Error; err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed checking project title")
			}
			if count > 0 {
				return utils.Error(c, fiber.StatusConflict, "project with given title already exists")
			}
			updates["title"] = value
		}
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Deadline != nil {
		updates["deadline"] = *req.Deadline
	}
	if req.ProjectType != nil {
		updates["project_type"] = strings.TrimSpace(*req.ProjectType)
	}
	if req.ProjectCode != nil {
		updates["project_code"] = strings.TrimSpace(*req.ProjectCode)
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if req.Finished != nil {
		updates["finished"] = *req.Finished
	}

	if len(updates) == 0 && req.Users == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating project")
		}
	}

	if req.Users != nil {
		members, err := h.loadMembers(*req.Users)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid user reference")
		}
		if err := h.DB.Model(&project).Association("Users").Replace(members); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating project members")
		}
	}

	var updated models.Project
	if err := h.DB.Preload("Users").First(&updated, "id = ?", project.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated project")
	}

	return utils.Success(c, fiber.StatusOK, "Project updated.", "result", updated)
}

func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	projectID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid project id")
	}

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "project not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading project")
	}

	if err := h.DB.Model(&project).Association("Users").Clear(); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed clearing project members")
	}
	if err := h.DB.Model(&project).Association("Documents").Clear(); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed clearing project documents")
	}
	if err := h.DB.Model(&project).Association("Comments").Clear(); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed clearing project comments")
	}
	if err := h.DB.Delete(&models.Project{}, "id = ?", project.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting project")
	}

	return utils.Success(c, fiber.StatusOK, "Project deleted.", "result", project)
}

func (h *ProjectsHandler) loadMembers(ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := map[uuid.UUID]bool{}
	members := make([]models.User, 0, len(ids))
	for _, raw := range ids {
		id, err := parseUUID(raw)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		var user models.User
		if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
			return nil, err
		}
		members = append(members, user)
	}
	return members, nil
}
