package routes

import (
	"uru_backend/internal/auth"
	"uru_backend/internal/config"
	"uru_backend/internal/handlers"
	"uru_backend/internal/middleware"
	"uru_backend/internal/models"
	"uru_backend/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes регистрирует все маршруты приложения
func SetupRoutes(
	r *gin.Engine,
	cfg *config.Config,
	store repositories.Store,
	issuer *auth.SessionIssuer,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	emailHandler *handlers.EmailHandler,
	userHandler *handlers.UserHandler,
) {
	requireAuth := middleware.AuthMiddleware(issuer, store)
	throttled := middleware.RateLimitMiddleware(rdb, cfg, "password-reset")

	// Открытые маршруты
	r.POST("/registration/", authHandler.Register)
	r.POST("/login/", authHandler.Login)
	r.GET("/activate/:uid/:token/", authHandler.Activate)
	r.POST("/send-password-reset-email/", throttled, authHandler.RequestPasswordReset)
	r.POST("/password-reset-confirm/:uid/:token/", throttled, authHandler.ConfirmPasswordReset)
	r.GET("/verify-email-change/:token/", emailHandler.VerifyEmailChange)
	r.GET("/check-email/", userHandler.CheckEmail)

	// Bearer-пара
	token := r.Group("/token")
	{
		token.POST("/", authHandler.TokenObtain)
		token.POST("/refresh/", authHandler.TokenRefresh)
		token.POST("/verify/", authHandler.TokenVerify)
	}

	// Маршруты аутентифицированного пользователя
	authGroup := r.Group("/auth")
	authGroup.Use(requireAuth)
	{
		authGroup.POST("/logout/", authHandler.Logout)
		authGroup.POST("/resend-verification-email/", authHandler.ResendVerification)
		authGroup.GET("/profile/", userHandler.GetProfile)
		authGroup.PUT("/profile/", userHandler.UpdateProfile)
		authGroup.GET("/verification-status/", userHandler.VerificationStatus)
		authGroup.DELETE("/delete-account/", authHandler.DeleteAccount)

		// Требуют подтвержденный email
		verified := authGroup.Group("")
		verified.Use(middleware.Require(auth.IsAuthenticatedAndVerified()))
		{
			verified.PUT("/change-email/", emailHandler.RequestEmailChange)
			verified.POST("/change-password/", authHandler.ChangePassword)
		}
	}

	// Демо-эндпоинты ролевых предикатов
	r.GET("/superadmin/", requireAuth,
		middleware.Require(auth.IsVerifiedRole(models.UserRoleSuperAdmin)),
		handlers.RoleGreeting("superadmin"))
	r.GET("/student/", requireAuth,
		middleware.Require(auth.IsVerifiedRole(models.UserRoleStudent)),
		handlers.RoleGreeting("student"))
	r.GET("/teacher/", requireAuth,
		middleware.Require(auth.IsSuperAdminOrReadOnly(models.UserRoleTeacher)),
		handlers.RoleGreeting("teacher"))
}
