package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSettings is the single-row administrator configuration.
type AdminSettings struct {
	ID           string    `db:"id" json:"id"`
	FormOpen     bool      `db:"form_open" json:"form_open"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Email        string    `db:"email" json:"email"`
	SessionID    string    `db:"session_id" json:"-"`
	LastUpdated  time.Time `db:"last_updated" json:"last_updated"`
}

// AdminClaims is the JWT payload of an administrator session.
type AdminClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ResetResult counts rows removed by a database reset.
type ResetResult struct {
	Matches  int64 `json:"matches"`
	Students int64 `json:"students"`
	Tutors   int64 `json:"tutors"`
}
