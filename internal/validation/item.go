package validation

import (
	"fmt"
	"regexp"
)

// MaxItemCodeLen максимальная длина кода иллюстрации
const MaxItemCodeLen = 64

var itemCodePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// ValidateItemCode проверяет код предмета из compose-события, например GOD_OF_WEALTH
func ValidateItemCode(code string) error {
	if code == "" {
		return fmt.Errorf("item code cannot be empty")
	}
	if len(code) > MaxItemCodeLen {
		return fmt.Errorf("item code must not exceed %d characters", MaxItemCodeLen)
	}
	if !itemCodePattern.MatchString(code) {
		return fmt.Errorf("item code %q can only contain A-Z, 0-9 and underscores", code)
	}
	return nil
}
