package controllers

import (
	"strings"
	"time"

	"learning-platform/backend/cache"
	"learning-platform/backend/config"
	"learning-platform/backend/middleware"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AuthController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Cache cache.Store
}

func NewAuthController(db *gorm.DB, cfg *config.Config, store cache.Store) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Cache: store}
}

type RegisterRequest struct {
	FirstName        string `json:"firstName" validate:"required,max=100"`
	LastName         string `json:"lastName" validate:"max=100"`
	Email            string `json:"email" validate:"required,email"`
	IdentityDocument string `json:"identityDocument" validate:"max=50"`
	BirthDate        string `json:"birthDate"`
	Password         string `json:"password" validate:"required,min=8"`
	Phone            string `json:"phone" validate:"max=30"`
	RoleID           int    `json:"roleId"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	UserName string      `json:"userName"`
	Token    string      `json:"token"`
	Role     models.Role `json:"role"`
	Email    string      `json:"email"`
	UserID   uint        `json:"userId"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates an account and returns a token. Roles other than STUDENT need an admin token.
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "User registration data"
// @Success 201 {object} LoginResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	role := models.RoleFromID(input.RoleID)
	if role != models.RoleStudent && callerRole(c) != models.RoleAdmin {
		return utils.Forbidden(c, "Only administrators can create staff accounts")
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	user := models.User{
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		Email:            strings.ToLower(strings.TrimSpace(input.Email)),
		IdentityDocument: input.IdentityDocument,
		BirthDate:        input.BirthDate,
		Phone:            input.Phone,
		Role:             role,
		PasswordHash:     hash,
	}
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Wrap(utils.ErrConflict, "email already registered")
			}
			return err
		}
		prefs := models.DefaultPreferences(user.ID)
		return tx.Create(&prefs).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	res, err := ac.issue(&user)
	if err != nil {
		return err
	}
	return utils.Created(c, res)
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var user models.User
	err := ac.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Unauthorized(c, "Invalid credentials")
	}
	if err != nil {
		return errors.Wrap(err, "load user")
	}
	if !utils.CheckPassword(user.PasswordHash, input.Password) {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	now := time.Now().UTC()
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.LoginHistory{UserID: user.ID, LoginTime: now}).Error; err != nil {
			return err
		}
		return tx.Model(&user).UpdateColumn("last_active_at", now).Error
	})
	if err != nil {
		return errors.Wrap(err, "record login")
	}

	res, err := ac.issue(&user)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Logout godoc
// @Summary Revoke the presented token
// @Tags auth
// @Param userId path int true "User ID"
// @Success 204
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/logout/{userId} [delete]
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := selfOrAdmin(c, userID); err != nil {
		return utils.HandleError(c, err)
	}

	claims := middleware.Claims(c)
	if err := cache.RevokeToken(c.UserContext(), ac.Cache, claims.ID, claims.TTL()); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	return utils.NoContent(c)
}

func (ac *AuthController) issue(user *models.User) (*LoginResponse, error) {
	token, _, err := utils.GenerateJWTToken(user, ac.Cfg)
	if err != nil {
		return nil, errors.Wrap(err, "generate token")
	}
	return &LoginResponse{
		UserName: user.FullName(),
		Token:    token,
		Role:     user.Role,
		Email:    user.Email,
		UserID:   user.ID,
	}, nil
}
