package models

import (
	"github.com/google/uuid"
)

// User is the authenticated caller, derived from verified token claims
type User struct {
	ID      uuid.UUID `json:"id"`
	Subject string    `json:"subject"`
	Email   string    `json:"email"`
	Name    string    `json:"name,omitempty"`
}

// userNamespace scopes deterministic user ids derived from identity provider subjects
var userNamespace = uuid.MustParse("6f1c5a0e-3f7b-4d9a-9a51-2f0d0c1e7b42")

// UserFromClaims maps token claims to a stable user identity
func UserFromClaims(claims *JWTClaims) *User {
	return &User{
		ID:      uuid.NewSHA1(userNamespace, []byte(claims.Iss+"|"+claims.Sub)),
		Subject: claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
	}
}

// SeedProfile builds the initial profile from identity metadata
func (u *User) SeedProfile() UserProfile {
	return UserProfile{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
	}
}
