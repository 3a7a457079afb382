package domain

import (
	"math/rand"
	"strings"
	"time"
)

// Board is a named, access-scoped canvas owning notes and connections.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an authenticated participant. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"display_name,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Slugify derives a URL slug from a board name: lowercased, runs of
// non-alphanumerics collapsed to a dash, plus a short random suffix to keep
// slugs unique across boards with the same name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")

	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = slugAlphabet[rand.Intn(len(slugAlphabet))]
	}
	if slug == "" {
		return string(suffix)
	}
	return slug + "-" + string(suffix)
}
