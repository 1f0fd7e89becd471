package models

import (
	"golang.org/x/crypto/bcrypt"
)

// AdminAccount is the single site owner allowed to publish metadata.
type AdminAccount struct {
	Username     string
	PasswordHash string
	TOTPSecret   string
}

// HashPassword generates bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares password with hash
func (a AdminAccount) CheckPassword(password string) bool {
	if a.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}

// TOTPEnabled reports whether a second factor is required at login.
func (a AdminAccount) TOTPEnabled() bool {
	return a.TOTPSecret != ""
}
