package auth

import (
	"context"
	"errors"
	"time"

	"portal/internal/apperr"
	"portal/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultAccessTTL keeps access tokens short-lived; the role snapshot
	// inside them goes stale at most this long after a role change.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL bounds a session credential's lifetime
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// SessionStore persists refresh-token rows. Consume must remove the row and
// return it in one statement so rotation stays single-use under concurrency;
// it reports gorm.ErrRecordNotFound when the row is absent.
type SessionStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	Consume(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// AccountLookup resolves the account behind a refresh token during rotation
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// RotateResult carries the artifacts of a successful rotation. RefreshToken
// is the raw replacement value, returned to the transport layer exactly once.
type RotateResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// TokenService issues short-lived signed access tokens and long-lived
// single-use refresh tokens; it owns rotation and revocation.
type TokenService struct {
	tokens     SessionStore
	users      AccountLookup
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(tokens SessionStore, users AccountLookup, secret []byte) *TokenService {
	return &TokenService{
		tokens:     tokens,
		users:      users,
		secret:     secret,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
}

// IssueAccessToken signs a {userId, roles} snapshot. Verification later is
// stateless — signature and expiry only, no DB hit.
func (s *TokenService) IssueAccessToken(userID uuid.UUID, roles []string) (string, error) {
	now := s.now()
	claims := AccessClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyAccessToken checks signature and expiry and returns the claims
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.ErrUnauthorized
	}
	return claims, nil
}

// IssueRefreshToken mints a new session credential. The raw value is
// returned to the caller exactly once; only its SHA-256 is persisted.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	raw, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}

	row := &model.RefreshToken{
		JTI:       uuid.New(),
		TokenHash: HashToken(raw),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, row); err != nil {
		return "", err
	}
	return raw, nil
}

// Rotate exchanges a still-valid refresh token for a fresh access token and
// a replacement refresh token. Any failure — absent row, expired row,
// already-rotated token, deactivated account — yields ErrUnauthorized and no
// new credential on any path. Single-use replay defense falls out of the
// atomic consume: after one successful rotation the backing row is gone.
func (s *TokenService) Rotate(ctx context.Context, raw string) (*RotateResult, error) {
	row, err := s.tokens.Consume(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}

	// Expiry is detected lazily on use; the row is already consumed.
	if row.Expired(s.now()) {
		return nil, apperr.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.ErrUnauthorized
	}

	accessToken, err := s.IssueAccessToken(user.ID, user.RoleNames())
	if err != nil {
		return nil, err
	}
	newRaw, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &RotateResult{AccessToken: accessToken, RefreshToken: newRaw, User: user}, nil
}

// RevokeOne deletes the session matching the raw token; invoked on logout
func (s *TokenService) RevokeOne(ctx context.Context, raw string) error {
	return s.tokens.DeleteByHash(ctx, HashToken(raw))
}

// RevokeAll deletes every session for a user; invoked on deactivation and
// hard delete.
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.DeleteByUser(ctx, userID)
}
