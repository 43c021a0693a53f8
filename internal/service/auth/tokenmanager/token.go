package tokenmanager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/repository"
)

const (
	defaultAccessTokenTTL  = time.Hour
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 30 * 24 * time.Hour

	// Raw refresh token entropy. 32 random bytes, hex encoded
	refreshTokenBytesLen = 32
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Refresh token repo
	refreshRepo repository.RefreshTokenRepo
}

func New(cfg Config, refreshRepo repository.RefreshTokenRepo) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:         cfg.SecretKey,
		alg:         jwt.GetSigningMethod(cfg.Alg),
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		refreshRepo: refreshRepo,
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// HashToken returns the storage form of a raw refresh token.
// Plain SHA-256 is enough here: raw tokens are high-entropy random strings,
// so no salt or work factor is needed, unlike passwords.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GeneratePair issues a signed access token and a fresh refresh token for
// the user. Only the refresh token hash is persisted, the raw value exists
// in the returned pair and nowhere else.
func (m *TokenManager) GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	refreshExpiresAt := now.Add(m.refreshTTL)

	access, accessExpiresAt, err := m.IssueAccess(user, now)
	if err != nil {
		return pair, err
	}

	// Generate random refresh token
	b := make([]byte, refreshTokenBytesLen)
	_, err = rand.Read(b)
	if err != nil {
		return pair, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}
	refresh := hex.EncodeToString(b)

	err = m.refreshRepo.Save(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(refresh),
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
		Revoked:   false,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

// IssueAccess signs a stateless access token: nothing is stored server-side
// and validity depends on the signature and embedded expiry only. The 'jti'
// claim is set but not persisted, so an access token can't be revoked before
// it expires; the short TTL bounds the exposure.
func (m *TokenManager) IssueAccess(user models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.ID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Email: user.Email,
		},
	)
	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return signed, expiresAt, nil
}

// UseRefresh consumes a raw refresh token: the stored record is atomically
// revoked and returned. Absent, expired and already revoked tokens all fail
// with apperrors.ErrInvalidRefreshToken, nothing more specific leaks out.
func (m *TokenManager) UseRefresh(ctx context.Context, refresh string) (models.RefreshToken, error) {
	token, err := m.refreshRepo.RevokeActive(ctx, HashToken(refresh), time.Now())
	if err != nil {
		return token, fmt.Errorf("error while using refresh token. Err: %w", err)
	}

	return token, nil
}

// ParseAccess validates the token signature and expiry and returns claims.
// Expired tokens fail with apperrors.ErrAccessTokenExpired so the caller may
// offer the refresh flow; any other defect is apperrors.ErrAccessTokenInvalid.
func (m *TokenManager) ParseAccess(access string) (AccessTokenClaims, error) {
	claims := AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, fmt.Errorf("%w. Err: %v", apperrors.ErrAccessTokenExpired, err)
	default:
		return claims, fmt.Errorf("%w. Err: %v", apperrors.ErrAccessTokenInvalid, err)
	}
}

// UserID extracts the subject claim
func (c AccessTokenClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w. Err: bad subject claim", apperrors.ErrAccessTokenInvalid)
	}
	return id, nil
}
