package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID string. Match and connection identifiers use it.
func NewID() string {
	return uuid.NewString()
}

// NewSessionID returns a 32 character hex session token for guest players.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ShortID returns the leading segment of id, for display names.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
