package identity

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

const minPasswordLength = 8

// SessionCache stores authenticated profiles for the token's lifetime so
// profile lookups skip the database on the hot path.
type SessionCache interface {
	Save(ctx context.Context, userID string, p Profile) error
	Get(ctx context.Context, userID string) (Profile, error)
	Delete(ctx context.Context, userID string) error
}

// Service implements signup, login, and profile lookup.
type Service struct {
	store    Store
	issuer   *TokenIssuer
	sessions SessionCache
	logger   *logging.Logger
}

// NewService creates the identity service.
func NewService(store Store, issuer *TokenIssuer, sessions SessionCache, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, issuer: issuer, sessions: sessions, logger: logger}
}

// SignUp registers a patient account. Administrator accounts are provisioned
// out of band, never through the public endpoint.
func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrMissingName
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if req.Role != "" && Role(strings.ToUpper(req.Role)) != RolePatient {
		return nil, ErrRoleNotAllowed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("identity: hash password")
	}

	user, err := s.store.Create(ctx, &User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         RolePatient,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// SignIn checks credentials and mints a session token. Unknown email and
// wrong password return the same error.
func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (string, *User, error) {
	user, err := s.store.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Mint(user)
	if err != nil {
		return "", nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.Save(ctx, user.ID, ProfileOf(user)); err != nil {
			s.logger.Warn("failed to cache session profile", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// SignOut revokes the cached session.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Delete(ctx, userID)
}

// Authenticate verifies a token and resolves the caller's current profile.
// The role comes from the stored profile, not the token claims.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	p, err := s.issuer.Verify(token)
	if err != nil {
		return Principal{}, err
	}

	profile, err := s.FetchProfile(ctx, p.UserID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: profile.ID, Role: profile.Role}, nil
}

// FetchProfile reads the profile from the session cache, falling back to the
// store when the cache has no entry.
func (s *Service) FetchProfile(ctx context.Context, userID string) (Profile, error) {
	if s.sessions != nil {
		if profile, err := s.sessions.Get(ctx, userID); err == nil {
			return profile, nil
		}
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, ErrUserNotFound
	}

	profile := ProfileOf(user)
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, userID, profile); err != nil {
			s.logger.Warn("failed to refresh session profile", "user_id", userID, "error", err)
		}
	}
	return profile, nil
}
