// Package privacy реализует одностороннее хэширование идентифицирующих полей.
// С границы ингеста и дальше система хранит только хэши - ни логинов,
// ни имён, ни заголовков.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIdentifier возвращает hex-представление SHA-256 от строки.
// Пустая строка хэшируется как любая другая - вызывающий сам решает,
// нужен ли ему маркер "unknown".
func HashIdentifier(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
