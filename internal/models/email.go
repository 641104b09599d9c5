package models

import "strings"

// NormalizeEmail приводит email к канонической форме (trim + lowercase).
// Применяется перед каждой проверкой уникальности и каждым поиском:
// сопоставление email регистронезависимое.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
