package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the already-resolved caller handed to the notification and audit stores.
type Identity struct {
	UserID string
	TeamID string
}

// IdentityClaims is the token shape issued by the identity provider. The subject is the user.
type IdentityClaims struct {
	TeamID string `json:"team_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity projects the claims onto the fields this service scopes by.
func (c IdentityClaims) Identity() Identity {
	return Identity{UserID: c.Subject, TeamID: c.TeamID}
}
