// FilePath: internal/models/models.user.go
package models

import (
	"strings"
	"time"
)

type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	PushToken    *string    `json:"-" db:"push_token"`
	LastLogin    *time.Time `json:"last_login" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Token returns the registered push token, or "" when none is set.
func (u *User) Token() string {
	if u.PushToken == nil {
		return ""
	}
	return *u.PushToken
}

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
