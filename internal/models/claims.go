package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued by the auth service. Only the fields the
// sharing service needs to reconstruct an Actor are declared.
type Claims struct {
	jwt.RegisteredClaims
	Id       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	Roles    []string `json:"roles"`
}

// Session is the session record the auth service keeps in Redis, keyed by
// token. The sharing service only checks validity.
type Session struct {
	Token          string `json:"token"`
	UserID         string `json:"userId"`
	IsValid        bool   `json:"isValid"`
	CreatedAt      int    `json:"createdAt"`
	LastActivityAt int    `json:"lastActivityAt"`
}
