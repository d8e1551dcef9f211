// internal/models/user.go
// Operator (tournament organiser) account model used by the JWT auth
// surface guarding TO-only engine operations.

package models

import "time"

// User represents an operator account.
type User struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	Role          UserRole  `json:"role" db:"role"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// UserRole defines operator access levels.
type UserRole string

const (
	RoleOrganizer UserRole = "organizer"
	RoleAdmin     UserRole = "admin"
)

// TokenPair represents a JWT access/refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginRequest represents operator authentication credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterRequest represents new operator account data.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=100"`
}
