package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocationPrefix is the logical namespace of prediction artifacts.
const LocationPrefix = "predictions/"

// NewLocationKey builds a unique artifact key for one run of ownerID.
// Nanoseconds plus a random suffix keep two uploads by the same owner in the
// same second from colliding.
func NewLocationKey(ownerID string, now time.Time) string {
	ts := now.UTC()
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s%s_%s_%09d_%s.csv",
		LocationPrefix, sanitizeOwner(ownerID), ts.Format("20060102150405"), ts.Nanosecond(), suffix)
}

func sanitizeOwner(ownerID string) string {
	var b strings.Builder
	for _, r := range ownerID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
