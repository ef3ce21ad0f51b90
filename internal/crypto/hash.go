package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLen максимальная длина пароля в байтах, которую учитывает bcrypt
const MaxPasswordLen = 72

// ErrEmptyPassword возвращается при попытке захешировать пустой пароль
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordHasher хеширует и проверяет пароли с помощью bcrypt.
// Соль генерируется заново при каждом вызове Hash и хранится внутри хеша,
// поэтому Verify не требует дополнительных данных.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher создает hasher с заданной стоимостью bcrypt.
// Значения вне диапазона [bcrypt.MinCost, bcrypt.MaxCost] заменяются на bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost возвращает используемую стоимость bcrypt
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash возвращает bcrypt хеш пароля
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify проверяет пароль против сохраненного хеша.
// Некорректный хеш не считается ошибкой: результат просто false.
// Пароль длиннее MaxPasswordLen не проверяется: bcrypt сравнил бы только префикс.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if password == "" || hash == "" || len(password) > MaxPasswordLen {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
