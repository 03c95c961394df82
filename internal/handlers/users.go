package handlers

import (
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/projectmanager/backend/internal/middleware"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/pkg/auth"
	"github.com/projectmanager/backend/pkg/logger"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB     *gorm.DB
	Tokens *auth.TokenService
}

func NewUsersHandler(db *gorm.DB, tokens *auth.TokenService) *UsersHandler {
	return &UsersHandler{DB: db, Tokens: tokens}
}

type registerRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Phone    string   `json:"phone"`
	Roles    []string `json:"roles"`
}

func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" {
		return utils.Error(c, fiber.StatusBadRequest, "username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	if !validRoles(req.Roles) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	}

	var existing models.User
	err := h.DB.First(&existing, "username = ? OR email = ?", req.Username, req.Email).Error
	if err == nil {
		return utils.Error(c, fiber.StatusConflict, "user already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	roles := models.RoleList(req.Roles)
	if len(roles) == 0 {
		roles = models.RoleList{models.RoleUser}
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Phone:        strings.TrimSpace(req.Phone),
		Roles:        roles,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"roles":    []string(user.Roles),
	})

	return utils.Success(c, fiber.StatusCreated, "New user created.", "result", user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "username and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "username = ?", req.Username).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"username": req.Username,
			"ip":       c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "username or password is incorrect")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "username or password is incorrect")
	}

	token, err := h.Tokens.Generate(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"ip":       c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, "Login successful.", "result", fiber.Map{
		"userId":   user.ID,
		"username": user.Username,
		"roles":    user.Roles,
		"token":    token,
	})
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	opts := utils.ParsePageOptions(c)

	query := utils.FilterLike(h.DB.Model(&models.User{}), "username", c.Query("username"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}
	if total == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no users found")
	}

	var users []models.User
	if err := utils.ApplyPage(query.Order("created_at DESC"), opts).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, "List of all users.", "users", users, opts, total)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.Preload("Company").Preload("Projects").First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	return utils.Success(c, fiber.StatusOK, "User found.", "user", user)
}

type updateUserRequest struct {
	Username    *string   `json:"username"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Roles       *[]string `json:"roles"`
	Password    *string   `json:"password"`
	OldPassword *string   `json:"oldPassword"`
}

// Update applies a field-level merge. A password change requires the
// previous plaintext password unless the actor holds the admin role;
// missing and mismatched old passwords are distinct failures.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	isAdmin := identity.Roles.Has(models.RoleAdmin)
	if identity.User.ID != userID && !isAdmin {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}

	if req.Password != nil {
		if len(*req.Password) < 8 {
			return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
		}
		if !isAdmin {
			if req.OldPassword == nil || *req.OldPassword == "" {
				return utils.Error(c, fiber.StatusUnauthorized, "old password not provided")
			}
			if !utils.CheckPassword(*req.OldPassword, user.PasswordHash) {
				return utils.Error(c, fiber.StatusUnauthorized, "old password does not match")
			}
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
		}
		updates["password_hash"] = hash
	}

	if req.Username != nil {
		value := strings.TrimSpace(*req.Username)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "username cannot be empty")
		}
		if value != user.Username {
			if taken, err := h.usernameTaken(value, user.ID.String()); err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed checking username")
			} else if taken {
				return utils.Error(c, fiber.StatusConflict, "username already taken")
			}
			updates["username"] = value
		}
	}

	if req.Email != nil {
		value := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(value); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid email")
		}
		if value != user.Email {
			if taken, err := h.emailTaken(value, user.ID.String()); err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed checking email")
			} else if taken {
				return utils.Error(c, fiber.StatusConflict, "email already taken")
			}
			updates["email"] = value
		}
	}

	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	if req.Roles != nil {
		if !isAdmin {
			return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}
		if !validRoles(*req.Roles) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role")
		}
		updates["roles"] = models.RoleList(*req.Roles)
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated user")
	}

	logger.InfoWithUser(identity.User.ID.String(), "user_updated", map[string]interface{}{
		"target_id": user.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, "User updated.", "result", updated)
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if err := h.DB.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	return utils.Success(c, fiber.StatusOK, "User deleted.", "result", user)
}

func (h *UsersHandler) usernameTaken(username, excludeID string) (bool, error) {
	var count int64
	err := h.DB.Model(&models.User{}).Where("username = ? AND id <> ?", username, excludeID).Count(&count).Error
	return count > 0, err
}

func (h *UsersHandler) emailTaken(email, excludeID string) (bool, error) {
	var count int64
	err := h.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, excludeID).Count(&count).Error
	return count > 0, err
}
