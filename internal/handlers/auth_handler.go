package handlers

import (
	"net/http"

	"uru_backend/internal/apperrors"
	"uru_backend/internal/services"
	"uru_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	authService services.AuthService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
	}
}

// Register - POST /registration/
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login - POST /login/. Провал логина отвечает 404 с non_field_errors:
// ответ не должен подтверждать существование аккаунта.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleLoginError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout - POST /auth/logout/. Успех отвечает 205 Reset Content.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.Refresh); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusResetContent, gin.H{"message": "Logout successful"})
}

// TokenObtain - POST /token/. Стандартная выдача bearer-пары.
func (h *AuthHandler) TokenObtain(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleLoginError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Token)
}

// TokenRefresh - POST /token/refresh/
func (h *AuthHandler) TokenRefresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	pair, err := h.authService.RefreshToken(c.Request.Context(), req.Refresh)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// TokenVerify - POST /token/verify/
func (h *AuthHandler) TokenVerify(c *gin.Context) {
	var req dto.VerifyTokenRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.VerifyAccessToken(c.Request.Context(), req.Token); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Activate - GET /activate/:uid/:token/
func (h *AuthHandler) Activate(c *gin.Context) {
	if err := h.authService.Activate(c.Param("uid"), c.Param("token")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// ResendVerification - POST /auth/resend-verification-email/
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	if err := h.authService.ResendVerification(userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent. Please check your inbox."})
}

// RequestPasswordReset - POST /send-password-reset-email/.
// Ответ всегда 200 и всегда одинаковый.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(req.Email); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If this email is registered, a password reset link has been sent."})
}

// ConfirmPasswordReset - POST /password-reset-confirm/:uid/:token/
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	uid, token := c.Param("uid"), c.Param("token")
	if uid == "" || token == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing uid or token"))
		return
	}

	var req dto.PasswordResetConfirmRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ConfirmPasswordReset(uid, token, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Password reset successfully"})
}

// ChangePassword - POST /auth/change-password/
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// DeleteAccount - DELETE /auth/delete-account/
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var req dto.DeleteAccountRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.DeleteAccount(userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *AuthHandler) handleLoginError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) && appErr.Code == apperrors.CodeInvalidCredentials {
		apperrors.HandleNonFieldError(c, appErr)
		return
	}
	h.HandleServiceError(c, err)
}
