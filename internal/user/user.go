// Package user defines the user model used throughout the application,
// particularly for authentication and URL ownership.
package user

import "strings"

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, normally a UUID.
	ID string `json:"id"`

	// Email is the login of the user, stored trimmed and lower-cased.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password. It is never rendered.
	PasswordHash string `json:"password_hash"`
}

// NormalizeEmail brings an email to the form it is stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
