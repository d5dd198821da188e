package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoidLength = 21

// NewRequestID returns a fresh nanoid used to correlate log lines and queue
// replies of one assembly request.
func NewRequestID() string {
	id, err := gonanoid.New()
	if err != nil {
		// crypto/rand failure; an empty id only degrades log correlation
		return ""
	}
	return id
}

// RequestIDOrNew keeps a caller supplied id when it looks like a nanoid and
// generates a new one otherwise.
func RequestIDOrNew(candidate string) string {
	if isNanoid(candidate) {
		return candidate
	}
	return NewRequestID()
}

func isNanoid(s string) bool {
	if len(s) != nanoidLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
