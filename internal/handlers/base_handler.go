package handlers

import (
	"uru_backend/internal/apperrors"
	"uru_backend/internal/logger"
	"uru_backend/internal/middleware"
	"uru_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// BindAndValidate_JSON привязывает тело запроса и гоняет его через
// валидатор. Пополевые ошибки уходят клиенту как {"errors": {...}}.
func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWithError(ctx, "Failed to bind JSON body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			fields := make(map[string][]string, len(vErr.Errors))
			for field, msg := range vErr.Errors {
				fields[field] = []string{msg}
			}
			apperrors.HandleError(c, apperrors.ValidationError(fields))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// HandleServiceError переводит ошибку сервиса в HTTP-ответ
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		if appErr.HTTPCode < 500 {
			logger.CtxWarn(ctx, "Service error",
				"code", string(appErr.Code),
				"path", c.Request.URL.Path,
			)
		}
		apperrors.HandleError(c, appErr)
		return
	}
	logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
	apperrors.HandleError(c, apperrors.InternalError(err))
}

// CurrentUserID возвращает id аутентифицированного пользователя.
// На маршрутах без AuthMiddleware вернет false.
func (h *BaseHandler) CurrentUserID(c *gin.Context) (string, bool) {
	p := middleware.PrincipalFromContext(c)
	if !p.Authenticated {
		apperrors.HandleError(c, apperrors.ErrUnauthorized)
		return "", false
	}
	return p.UserID, true
}
