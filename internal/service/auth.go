package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
	"github.com/hirokiuemura2/GDGTeamF1/internal/hash"
	"github.com/hirokiuemura2/GDGTeamF1/internal/repository"
	"github.com/hirokiuemura2/GDGTeamF1/internal/token"
)

// TokenPair carries a freshly-minted access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService orchestrates registration, authentication, Google account
// linking, and token issuance. All durable state lives in the user
// repository; tokens are stateless.
type AuthService struct {
	users  repository.UserRepository
	hasher *hash.Hasher
	codec  *token.Codec
	logger *zap.Logger
}

// NewAuthService wires the identity service.
func NewAuthService(users repository.UserRepository, hasher *hash.Hasher, codec *token.Codec, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, codec: codec, logger: logger}
}

// RegisterLocal creates a password-based account. The email must not be
// registered yet; the returned record never carries the password hash.
func (s *AuthService) RegisterLocal(ctx context.Context, firstName, lastName, email, password string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.RegisterLocal")
	defer span.End()

	normalized := normalizeIdentifier(email)

	if _, err := s.users.FindByEmail(ctx, normalized); err == nil {
		return domain.User{}, domain.ErrIdentityExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("check existing user: %w", err)
	}

	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Status:       domain.StatusPending,
		Email:        normalized,
		PasswordHash: hashed,
	}
	if !user.HasIdentifier() {
		return domain.User{}, domain.ErrIdentifierMissing
	}

	created, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			return domain.User{}, domain.ErrIdentityExists
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.audit("auth.register_local.success", "user_id", created.ID)
	return redactHash(created), nil
}

// AuthenticateLocal verifies an email/password pair and returns the
// matching identity.
func (s *AuthService) AuthenticateLocal(ctx context.Context, email, password string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.AuthenticateLocal")
	defer span.End()

	user, err := s.users.FindByEmail(ctx, normalizeIdentifier(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrIdentityNotFound
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		s.audit("auth.login.password_mismatch", "user_id", user.ID)
		return domain.User{}, domain.ErrInvalidCredentials
	}

	s.audit("auth.login.success", "user_id", user.ID)
	return redactHash(user), nil
}

// RegisterFederated creates an account linked to a Google subject. No
// password login is possible for such accounts, and no merge with a local
// account sharing the same email address ever happens.
func (s *AuthService) RegisterFederated(ctx context.Context, firstName, lastName, googleSub string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.RegisterFederated")
	defer span.End()

	if _, err := s.users.FindByGoogleSub(ctx, googleSub); err == nil {
		return domain.User{}, domain.ErrIdentityExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("check existing google user: %w", err)
	}

	user := domain.User{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Status:    domain.StatusPending,
		GoogleSub: googleSub,
	}
	if !user.HasIdentifier() {
		return domain.User{}, domain.ErrIdentifierMissing
	}

	created, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			return domain.User{}, domain.ErrIdentityExists
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create google user: %w", err)
	}

	s.audit("auth.register_federated.success", "user_id", created.ID)
	return redactHash(created), nil
}

// AuthenticateFederated resolves an identity by its Google subject.
func (s *AuthService) AuthenticateFederated(ctx context.Context, googleSub string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.AuthenticateFederated")
	defer span.End()

	user, err := s.users.FindByGoogleSub(ctx, googleSub)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrFederatedIdentityNotFound
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("find google user: %w", err)
	}

	s.audit("auth.google_login.success", "user_id", user.ID)
	return redactHash(user), nil
}

// Delete removes the identity record. The caller must already have been
// authenticated as this exact user; the endpoint layer enforces the
// identity match. Already-issued tokens stay valid until expiry.
func (s *AuthService) Delete(ctx context.Context, userID string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Delete")
	defer span.End()

	if err := s.users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrIdentityNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("delete user: %w", err)
	}

	s.audit("auth.delete_user.success", "user_id", userID)
	return nil
}

// IssueTokenPair mints an access and a refresh token for the subject with
// their configured default lifetimes.
func (s *AuthService) IssueTokenPair(subjectID string) (TokenPair, error) {
	access, err := s.codec.Issue(subjectID, token.KindAccess, 0)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(subjectID, token.KindRefresh, 0)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RotateFromRefresh exchanges a valid refresh token for a brand-new token
// pair. The subject is re-resolved against the store so tokens issued to
// deleted accounts cannot be rotated.
func (s *AuthService) RotateFromRefresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.RotateFromRefresh")
	defer span.End()

	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.Kind != token.KindRefresh {
		return TokenPair{}, domain.ErrWrongTokenKind
	}

	if _, err := s.users.FindByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenPair{}, domain.ErrIdentityNotFound
		}
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("resolve subject: %w", err)
	}

	pair, err := s.IssueTokenPair(claims.Subject)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, err
	}

	s.audit("auth.refresh.success", "user_id", claims.Subject)
	return pair, nil
}

// VerifyAccessToken validates a bearer token and returns its subject.
// Refresh tokens are rejected here so they cannot be replayed as access
// tokens.
func (s *AuthService) VerifyAccessToken(tokenString string) (string, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Kind != token.KindAccess {
		return "", domain.ErrWrongTokenKind
	}
	return claims.Subject, nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("auth-service").Start(ctx, name)
}

func (s *AuthService) audit(event string, kv ...any) {
	logger := s.logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Sugar().Infow(event, kv...)
}

func redactHash(user domain.User) domain.User {
	user.PasswordHash = ""
	return user
}

func normalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
