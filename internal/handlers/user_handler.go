package handlers

import (
	"net/http"

	"uru_backend/internal/apperrors"
	"uru_backend/internal/services"
	"uru_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	*BaseHandler
	userService services.UserService
}

func NewUserHandler(base *BaseHandler, userService services.UserService) *UserHandler {
	return &UserHandler{
		BaseHandler: base,
		userService: userService,
	}
}

// GetProfile - GET /auth/profile/
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	resp, err := h.userService.GetProfile(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateProfile - PUT /auth/profile/
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CheckEmail - GET /check-email/?email=...
func (h *UserHandler) CheckEmail(c *gin.Context) {
	emailAddr := c.Query("email")
	if emailAddr == "" {
		apperrors.HandleError(c, apperrors.FieldError("email", "This field is required"))
		return
	}

	resp, err := h.userService.CheckEmail(emailAddr)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerificationStatus - GET /auth/verification-status/
func (h *UserHandler) VerificationStatus(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	resp, err := h.userService.VerificationStatus(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RoleGreeting возвращает обработчик демо-эндпоинта роли
func RoleGreeting(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello, " + role})
	}
}
