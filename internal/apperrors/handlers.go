package apperrors

import (
	"log"

	"github.com/gin-gonic/gin"
)

// HandleError - обработка ошибок для Gin контекста.
// Пополевые ошибки рендерятся как {"errors": {field: [msg]}} (формат
// исходного фронтенда), остальные - как {"error": message}.
func HandleError(c *gin.Context, err *AppError) {
	if err.HTTPCode >= 500 {
		log.Printf("Server error: %v", err)
	}

	if err.Fields != nil {
		c.JSON(err.HTTPCode, gin.H{"errors": err.Fields})
		return
	}
	c.JSON(err.HTTPCode, gin.H{"error": err.Message})
}

// HandleNonFieldError рендерит ошибку в формате
// {"errors": {"non_field_errors": [msg]}} - так исходный API отвечает
// на провал логина и троттлинг.
func HandleNonFieldError(c *gin.Context, err *AppError) {
	c.JSON(err.HTTPCode, gin.H{"errors": gin.H{"non_field_errors": []string{err.Message}}})
}
