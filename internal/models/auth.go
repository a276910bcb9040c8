package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload minted by the identity provider.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller every workflow operation is evaluated against.
type Actor struct {
	ID   string
	Role Role
}

// Actor projects the claims onto the identity the services consume.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Role: c.Role}
}
