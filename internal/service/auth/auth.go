package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/repository"
	"github.com/nstepanov/passport/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"

	// Upper bound for a single store call
	defaultStoreTimeout = 3 * time.Second
)

type Config struct {
	// Hasher to use during registration or login
	// Argon2id with default work factors if not set
	Hasher PasswordHasher

	// Upper bound for a single store call
	// If not set than default is used
	StoreTimeout time.Duration
}

type RegisterParams struct {
	Email     string
	Password  string
	Username  *string
	FirstName *string
	LastName  *string
}

// SessionService orchestrates credential checks, password hashing and token
// issuance into the register / login / refresh / logout / profile operations.
// It keeps no mutable state: the store is the single source of truth.
type SessionService struct {
	token        *tokenmanager.TokenManager
	hasher       PasswordHasher
	userRepo     repository.UserRepo
	refreshRepo  repository.RefreshTokenRepo
	storeTimeout time.Duration

	// Hash verified on login for unknown emails, so the unknown-email and
	// wrong-password paths cost the same
	dummyHash string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, userRepo repository.UserRepo, refreshRepo repository.RefreshTokenRepo) (*SessionService, error) {
	if token == nil || userRepo == nil || refreshRepo == nil {
		return nil, errors.New("token manager and repos must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("error while preparing hasher. Err: %w", err)
	}

	return &SessionService{
		token:        token,
		hasher:       hasher,
		userRepo:     userRepo,
		refreshRepo:  refreshRepo,
		storeTimeout: cfg.StoreTimeout,
		dummyHash:    dummyHash,
	}, nil
}

// AccessTTL is what the HTTP layer reports as 'expires_in'
func (s *SessionService) AccessTTL() time.Duration {
	return s.token.AccessTTL()
}

func (s *SessionService) Register(ctx context.Context, arg RegisterParams) (models.User, error) {
	var user models.User

	if err := ValidateEmail(arg.Email); err != nil {
		return user, err
	}
	if err := ValidatePassword(arg.Password); err != nil {
		return user, err
	}
	if arg.Username != nil {
		if err := ValidateUsername(*arg.Username); err != nil {
			return user, err
		}
	}

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, fmt.Errorf("error while hashing password. Err: %w", err)
	}

	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	user, err = s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Email:        arg.Email,
		PasswordHash: hash,
		Username:     arg.Username,
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
	})
	if err != nil {
		var violation *repository.ConstraintViolation
		if errors.As(err, &violation) {
			// The insert is the uniqueness check: two concurrent registrations
			// race on the unique index and the loser lands here
			switch violation.Field {
			case "username":
				return user, apperrors.ErrUsernameTaken
			default:
				return user, apperrors.ErrEmailTaken
			}
		}
		return user, fmt.Errorf("error while creating user. Err: %w", err)
	}

	return user, nil
}

func (s *SessionService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	user, err := s.userRepo.GetUserByEmail(storeCtx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Burn a verification anyway, then fail exactly like a wrong password
		_, _ = s.hasher.Verify(password, s.dummyHash)
		return pair, apperrors.ErrInvalidCredentials
	case err != nil:
		return pair, fmt.Errorf("error while looking up user. Err: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return pair, fmt.Errorf("error while verifying password. Err: %w", err)
	}
	if !ok {
		return pair, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return pair, apperrors.ErrAccountDeactivated
	}

	if err := s.userRepo.TouchUser(storeCtx, user.ID); err != nil {
		return pair, fmt.Errorf("error while updating user. Err: %w", err)
	}

	pair, err = s.token.GeneratePair(storeCtx, user)
	if err != nil {
		return pair, fmt.Errorf("error while generating token pair. Err: %w", err)
	}

	return pair, nil
}

// Refresh rotates the presented refresh token: the old one is revoked in the
// same store call that validates it, and a fresh pair is issued. Either the
// caller gets a new valid pair or an error and no new token exists.
func (s *SessionService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	token, err := s.token.UseRefresh(storeCtx, refresh)
	if err != nil {
		return pair, err
	}

	// An account deactivated after issuance must not be refreshable
	user, err := s.userRepo.GetUserByID(storeCtx, token.UserID)
	if err != nil {
		return pair, fmt.Errorf("error while looking up token owner. Err: %w", err)
	}
	if !user.IsActive {
		return pair, apperrors.ErrAccountDeactivated
	}

	pair, err = s.token.GeneratePair(storeCtx, user)
	if err != nil {
		return pair, fmt.Errorf("error while generating token pair. Err: %w", err)
	}

	return pair, nil
}

// Logout revokes every active refresh token of the user ("sign out
// everywhere"). Already issued access tokens stay valid until expiry.
func (s *SessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	_, err := s.refreshRepo.RevokeAllByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("error while revoking user tokens. Err: %w", err)
	}
	return nil
}

func (s *SessionService) Profile(ctx context.Context, userID uuid.UUID) (models.User, error) {
	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	return s.userRepo.GetUserByID(ctx, userID)
}

// AuthenticateRequest resolves the user behind the request's bearer token
// Used by the auth middleware
func (s *SessionService) AuthenticateRequest(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	access, err := s.accessFromRequest(r)
	if err != nil {
		return user, err
	}

	claims, err := s.token.ParseAccess(access)
	if err != nil {
		return user, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return user, err
	}

	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	user, err = s.userRepo.GetUserByID(storeCtx, userID)
	if err != nil {
		return user, fmt.Errorf("error while looking up token subject. Err: %w", err)
	}
	if !user.IsActive {
		return user, apperrors.ErrAccountDeactivated
	}

	return user, nil
}

func (s *SessionService) accessFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get(defaultAccessHeaderName)

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, defaultAccessAuthScheme) || token == "" {
		return "", apperrors.ErrAccessTokenInvalid
	}

	return token, nil
}

// boundStore caps how long a store call may take
func (s *SessionService) boundStore(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
