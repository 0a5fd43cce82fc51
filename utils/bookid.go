package utils

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidBookID is returned by CleanBookID for names that cannot be used
// as a single storage path segment.
var ErrInvalidBookID = errors.New("invalid book id")

// CleanBookID trims id and checks it is safe to embed in storage paths.
func CleanBookID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." {
		return "", ErrInvalidBookID
	}
	if strings.ContainsAny(id, `/\`) {
		return "", ErrInvalidBookID
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return "", ErrInvalidBookID
		}
	}
	return id, nil
}
