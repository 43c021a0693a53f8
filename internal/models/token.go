package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken holds the stored form of a refresh token.
// The raw value is shown to the caller once at issuance and never persisted,
// only its hash is.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager on login or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
