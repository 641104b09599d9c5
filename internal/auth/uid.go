package auth

import "encoding/base64"

// Сегмент uid в ссылках активации и сброса пароля - это id пользователя
// в base64url без паддинга.

// EncodeUID кодирует id пользователя для использования в ссылке
func EncodeUID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// DecodeUID декодирует сегмент uid обратно в id пользователя
func DecodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
