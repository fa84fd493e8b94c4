package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func IsValidRole(r string) bool {
	return r == string(RoleUser) || r == string(RoleAdmin)
}

func IsAdmin(r string) bool { return r == string(RoleAdmin) }

const (
	maxNameLen     = 80
	MinPasswordLen = 8
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser validates profile fields and returns a user with a fresh id.
// The password hash is produced by the caller.
func NewUser(email, name, passwordHash string, role Role, now time.Time) (User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" {
		return User{}, ErrMissingField("email")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return User{}, ErrInvalidField("email", "malformed")
	}
	if name == "" {
		return User{}, ErrMissingField("name")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return User{}, ErrInvalidField("name", "too long")
	}
	if passwordHash == "" {
		return User{}, ErrMissingField("password")
	}
	if !IsValidRole(string(role)) {
		return User{}, ErrInvalidField("role", "unknown")
	}

	return User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         string(role),
		CreatedAt:    now.UTC(),
	}, nil
}

// ValidatePassword enforces the minimal password policy applied at signup.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		return ErrWeakPassword("must be at least 8 characters")
	}
	return nil
}
