package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the JWT claims supplied by the identity provider.
// The subject claim is the user id; email is carried for display
// (subscription views show the sharing owner's email).
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}
