package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/gorm"
)

type CompaniesHandler struct {
	DB *gorm.DB
}

func NewCompaniesHandler(db *gorm.DB) *CompaniesHandler {
	return &CompaniesHandler{DB: db}
}

func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	opts := utils.ParsePageOptions(c)

	query := utils.FilterLike(h.DB.Model(&models.Company{}), "name", c.Query("name"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting companies")
	}
	if total == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no companies found")
	}

	var companies []models.Company
	if err := utils.ApplyPage(query.Order("created_at DESC"), opts).Find(&companies).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing companies")
	}

	return utils.Paginated(c, "List of all companies.", "companies", companies, opts, total)
}

func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var company models.Company
	err = h.DB.
		Preload("Addresses").
		Preload("Contacts").
		Preload("Projects").
		First(&company, "id = ?", companyID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "company not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching company")
	}

	return utils.Success(c, fiber.StatusOK, "Company found.", "company", company)
}

type addressInput struct {
	AddressName string `json:"addressName"`
	Street      string `json:"street"`
	Zip         string `json:"zip"`
	City        string `json:"city"`
}

type createCompanyRequest struct {
	Name       string         `json:"name"`
	BusinessID string         `json:"businessId"`
	Industry   string         `json:"industry"`
	Addresses  []addressInput `json:"addresses"`
	Contacts   []string       `json:"contacts"`
}

func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	var req createCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "company name not given")
	}

	var existing models.Company
	err := h.DB.First(&existing, "name = ?", req.Name).Error
	if err == nil {
		return utils.Error(c, fiber.StatusConflict, "company with given name already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing company")
	}

	company := models.Company{
		Name:       req.Name,
		BusinessID: strings.TrimSpace(req.BusinessID),
		Industry:   strings.TrimSpace(req.Industry),
	}
	for _, addr := range req.Addresses {
		company.Addresses = append(company.Addresses, models.CompanyAddress{
			AddressName: addr.AddressName,
			Street:      addr.Street,
			Zip:         addr.Zip,
			City:        addr.City,
		})
	}

	contacts, err := h.loadContacts(req.Contacts)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid contact reference")
	}
	company.Contacts = contacts

	if err := h.DB.Create(&company).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating company")
	}

	return utils.Success(c, fiber.StatusCreated, "New company created.", "result", company)
}

type updateCompanyRequest struct {
	Name       *string         `json:"name"`
	BusinessID *string         `json:"businessId"`
	Industry   *string         `json:"industry"`
	Addresses  *[]addressInput `json:"addresses"`
}

func (h *CompaniesHandler) Update(c *fiber.Ctx) error {
	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var company models.Company
	if err := h.DB.First(&company, "id = ?", companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "company not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading company")
	}

	var req updateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		value := strings.TrimSpace(*req.Name)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		if value != company.Name {
			var count int64
			if err := h.DB.Model(&models.Company{}).Where("name = ? AND id <> ?", value, company.ID).Count(&count).Error; err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed checking company name")
			}
			if count > 0 {
				return utils.Error(c, fiber.StatusConflict, "company with given name already exists")
			}
			updates["name"] = value
		}
	}
	if req.BusinessID != nil {
		updates["business_id"] = strings.TrimSpace(*req.BusinessID)
	}
	if req.Industry != nil {
		updates["industry"] = strings.TrimSpace(*req.Industry)
	}

	if len(updates) == 0 && req.Addresses == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&models.Company{}).Where("id = ?", company.ID).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating company")
		}
	}

	if req.Addresses != nil {
		if err := h.DB.Where("company_id = ?", company.ID).Delete(&models.CompanyAddress{}).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed replacing addresses")
		}
		for _, addr := range *req.Addresses {
			record := models.CompanyAddress{
				CompanyID:   company.ID,
				AddressName: addr.AddressName,
				Street:      addr.Street,
				Zip:         addr.Zip,
				City:        addr.City,
			}
			if err := h.DB.Create(&record).Error; err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed replacing addresses")
			}
		}
	}

	var updated models.Company
	if err := h.DB.Preload("Addresses").First(&updated, "id = ?", company.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated company")
	}

	return utils.Success(c, fiber.StatusOK, "Company updated.", "result", updated)
}

func (h *CompaniesHandler) Delete(c *fiber.Ctx) error {
	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var company models.Company
	if err := h.DB.First(&company, "id = ?", companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "company not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading company")
	}

	if err := h.DB.Where("company_id = ?", company.ID).Delete(&models.CompanyAddress{}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting company addresses")
	}
	if err := h.DB.Delete(&models.Company{}, "id = ?", company.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting company")
	}

	return utils.Success(c, fiber.StatusOK, "Company deleted.", "result", company)
}

func (h *CompaniesHandler) loadContacts(ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	contacts := make([]models.User, 0, len(ids))
	for _, raw := range ids {
		id, err := parseUUID(raw)
		if err != nil {
			return nil, err
		}
		var user models.User
		if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
			return nil, err
		}
		contacts = append(contacts, user)
	}
	return contacts, nil
}
