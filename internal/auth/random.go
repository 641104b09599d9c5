package auth

import "crypto/rand"

// Ровно 64 символа: 256 делится на длину алфавита нацело, поэтому
// остаток от деления байта не смещает распределение
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// RandomToken возвращает криптографически случайную URL-безопасную
// строку длиной n. Используется для opaque-токенов смены email.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}
