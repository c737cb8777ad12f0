package controllers

import (
	"encoding/json"
	"strings"

	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

type UpdateProfileRequest struct {
	FirstName        *string `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string `json:"lastName" validate:"omitempty,max=100"`
	Phone            *string `json:"phone" validate:"omitempty,max=30"`
	IdentityDocument *string `json:"identityDocument" validate:"omitempty,max=50"`
	BirthDate        *string `json:"birthDate"`
	OldPassword      string  `json:"oldPassword"`
	NewPassword      string  `json:"newPassword" validate:"omitempty,min=8"`
}

type PreferencesRequest struct {
	NotificationsEnabled *bool           `json:"notificationsEnabled"`
	HighContrast         *bool           `json:"highContrast"`
	FontSize             *string         `json:"fontSize" validate:"omitempty,oneof=small medium large"`
	Interests            json.RawMessage `json:"interests"`
}

// UserRequest is the admin create/update payload. Password is required on create.
type UserRequest struct {
	FirstName        string `json:"firstName" validate:"required,max=100"`
	LastName         string `json:"lastName" validate:"max=100"`
	Email            string `json:"email" validate:"required,email"`
	IdentityDocument string `json:"identityDocument" validate:"max=50"`
	BirthDate        string `json:"birthDate"`
	Phone            string `json:"phone" validate:"max=30"`
	Password         string `json:"password" validate:"omitempty,min=8"`
	RoleID           int    `json:"roleId"`
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile data
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/me [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	var user models.User
	if err := uc.DB.First(&user, callerID(c)).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates authenticated user's profile data. Changing the password needs the old one.
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateProfileRequest true "Profile update data"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/me [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var input UpdateProfileRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var user models.User
	if err := uc.DB.First(&user, callerID(c)).Error; err != nil {
		return utils.HandleError(c, err)
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.IdentityDocument != nil {
		user.IdentityDocument = *input.IdentityDocument
	}
	if input.BirthDate != nil {
		user.BirthDate = *input.BirthDate
	}

	if input.NewPassword != "" {
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if !utils.CheckPassword(user.PasswordHash, input.OldPassword) {
			return utils.Unauthorized(c, "Invalid old password")
		}
		hash, err := utils.HashPassword(input.NewPassword)
		if err != nil {
			return errors.Wrap(err, "hash password")
		}
		user.PasswordHash = hash
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return errors.Wrap(err, "update user")
	}
	return c.JSON(user)
}

// GetPreferences returns the caller's preferences, creating the defaults on
// first access.
func (uc *UserController) GetPreferences(c *fiber.Ctx) error {
	prefs, err := uc.preferences(callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(prefs)
}

func (uc *UserController) UpdatePreferences(c *fiber.Ctx) error {
	var input PreferencesRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if len(input.Interests) > 0 && !json.Valid(input.Interests) {
		return utils.BadRequest(c, "interests must be valid JSON")
	}

	prefs, err := uc.preferences(callerID(c))
	if err != nil {
		return err
	}
	if input.NotificationsEnabled != nil {
		prefs.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.HighContrast != nil {
		prefs.HighContrast = *input.HighContrast
	}
	if input.FontSize != nil {
		prefs.FontSize = *input.FontSize
	}
	if len(input.Interests) > 0 {
		prefs.Interests = datatypes.JSON(input.Interests)
	}
	if err := uc.DB.Save(prefs).Error; err != nil {
		return errors.Wrap(err, "save preferences")
	}
	return c.JSON(prefs)
}

func (uc *UserController) preferences(userID uint) (*models.UserPreferences, error) {
	prefs := models.DefaultPreferences(userID)
	err := uc.DB.Where(models.UserPreferences{UserID: userID}).
		Attrs(prefs).
		FirstOrCreate(&prefs).Error
	if err != nil {
		return nil, errors.Wrap(err, "load preferences")
	}
	return &prefs, nil
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param role query string false "ADMIN, INSTRUCTOR or STUDENT"
// @Param search query string false "Name or e-mail"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /users [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	page, pageSize, offset := utils.PageParams(c)
	query := uc.DB.Model(&models.User{})

	if role := strings.ToUpper(c.Query("role")); role != "" {
		query = query.Where("role = ?", role)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return errors.Wrap(err, "count users")
	}
	users := []models.User{}
	if err := query.Order("id").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return errors.Wrap(err, "list users")
	}
	return utils.Paginate(c, users, total, page, pageSize)
}

func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	var input UserRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if input.Password == "" {
		return utils.ValidationError(c, map[string]string{"password": "password is required"})
	}
	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	user := models.User{PasswordHash: hash}
	input.apply(&user)
	err = uc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		prefs := models.DefaultPreferences(user.ID)
		return tx.Create(&prefs).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, user)
}

func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input UserRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		return utils.HandleError(c, err)
	}
	input.apply(&user)
	if input.Password != "" {
		hash, err := utils.HashPassword(input.Password)
		if err != nil {
			return errors.Wrap(err, "hash password")
		}
		user.PasswordHash = hash
	}
	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser removes the account and everything it owns.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if id == callerID(c) {
		return utils.Conflict(c, "You cannot delete your own account")
	}

	err = uc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(utils.ErrNotFound, "user %d", id)
		}
		for _, model := range []interface{}{
			&models.LoginHistory{},
			&models.UserPreferences{},
			&models.Enrollment{},
			&models.ChapterCompletion{},
			&models.ChapterPosition{},
			&models.UserBadge{},
			&models.Notification{},
			&models.ChapterNote{},
		} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

func (r UserRequest) apply(user *models.User) {
	user.FirstName = strings.TrimSpace(r.FirstName)
	user.LastName = strings.TrimSpace(r.LastName)
	user.Email = strings.ToLower(strings.TrimSpace(r.Email))
	user.IdentityDocument = r.IdentityDocument
	user.BirthDate = r.BirthDate
	user.Phone = r.Phone
	user.Role = models.RoleFromID(r.RoleID)
}
