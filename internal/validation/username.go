// Package validation содержит правила проверки входных данных API.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iudanet/gradesubmission/internal/crypto"
)

// UsernamePattern определяет допустимый формат username
// Латинские буквы, цифры, точка, дефис и нижнее подчеркивание
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 64
	// MinPasswordLen минимальная длина пароля при регистрации
	MinPasswordLen = 8
)

// ValidateUsername проверяет username при регистрации
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("Username cannot be blank")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("Username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("Username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("Username can only contain letters, numbers, dots, dashes and underscores")
	}

	return nil
}

// ValidatePassword проверяет пароль при регистрации
// Длина: от 8 символов до 72 байт (ограничение bcrypt)
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("Password cannot be blank")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("Password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > crypto.MaxPasswordLen {
		return fmt.Errorf("Password must not exceed %d bytes", crypto.MaxPasswordLen)
	}

	return nil
}

// ValidateCredentials проверяет username и пароль и возвращает все нарушения
func ValidateCredentials(username, password string) []string {
	var messages []string
	if err := ValidateUsername(username); err != nil {
		messages = append(messages, err.Error())
	}
	if err := ValidatePassword(password); err != nil {
		messages = append(messages, err.Error())
	}
	return messages
}
