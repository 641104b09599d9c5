package handlers

import (
	"net/http"

	"uru_backend/internal/services"
	"uru_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	*BaseHandler
	emailChangeService services.EmailChangeService
}

func NewEmailHandler(base *BaseHandler, emailChangeService services.EmailChangeService) *EmailHandler {
	return &EmailHandler{
		BaseHandler:        base,
		emailChangeService: emailChangeService,
	}
}

// RequestEmailChange - PUT /auth/change-email/
func (h *EmailHandler) RequestEmailChange(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var req dto.ChangeEmailRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.emailChangeService.Request(userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Verification email sent to the new address",
		"detail":  "Confirm the new email to complete the change",
	})
}

// VerifyEmailChange - GET /verify-email-change/:token/
func (h *EmailHandler) VerifyEmailChange(c *gin.Context) {
	user, err := h.emailChangeService.Verify(c.Param("token"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Email changed successfully",
		"email":   user.Email,
	})
}
