package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern допустимый формат имени игрока: латиница, цифры, подчёркивание
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 32

	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// ValidateUsername проверяет имя игрока при регистрации и входе
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("username cannot be empty")
	case len(username) < MinUsernameLen:
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	case len(username) > MaxUsernameLen:
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	case !UsernamePattern.MatchString(username):
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}
	return nil
}

// ValidatePassword проверяет длину пароля в байтах
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return fmt.Errorf("password cannot be empty")
	case len(password) < MinPasswordLen:
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLen)
	}
	return nil
}
