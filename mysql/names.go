package mysql

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxKeyLen = 191

func sanitizeTableName(name string) (string, error) {
	if name == "" {
		return "", ErrTableNameRequired
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
		for _, r := range part {
			if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				continue
			}

			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
	}

	return name, nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if utf8.RuneCountInString(key) > maxKeyLen {
		return fmt.Errorf("%w: %d characters", ErrKeyTooLong, utf8.RuneCountInString(key))
	}

	return nil
}
