package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

// Session is the outcome of a successful login
type Session struct {
	Identity  *entity.Identity `json:"identity"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// AuthService authenticates visitors and accountants
type AuthService interface {
	Authenticate(ctx context.Context, role, login, password string) (*entity.Identity, error)
	Login(ctx context.Context, role, login, password string) (*Session, error)
	ParseToken(token string) (*entity.Identity, error)
	SetPassword(ctx context.Context, role, login, password string) error
}

type authServiceImpl struct {
	visitors    port.CredentialRepository
	accountants port.CredentialRepository
	hasher      port.PasswordHasher
	tokens      port.TokenIssuer
	logger      Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	visitors port.CredentialRepository,
	accountants port.CredentialRepository,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		visitors:    visitors,
		accountants: accountants,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
	}
}

func (s *authServiceImpl) credentials(role string) (port.CredentialRepository, error) {
	switch role {
	case entity.RoleVisitor:
		return s.visitors, nil
	case entity.RoleAccountant:
		return s.accountants, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", entity.ErrValidation, role)
	}
}

// Authenticate checks login and password against the table of role.
// Unknown logins and wrong passwords fail the same way.
func (s *authServiceImpl) Authenticate(ctx context.Context, role, login, password string) (*entity.Identity, error) {
	repo, err := s.credentials(role)
	if err != nil {
		return nil, err
	}
	if login == "" || password == "" {
		return nil, entity.ErrAuthentication
	}

	cred, err := repo.GetCredential(ctx, login)
	if err != nil {
		s.logger.Error("Failed to load credential", "error", err, "role", role, "login", login)
		return nil, err
	}
	if cred == nil || !s.hasher.Verify(cred.PasswordHash, password) {
		s.logger.Info("Authentication refused", "role", role, "login", login)
		return nil, entity.ErrAuthentication
	}

	return &entity.Identity{
		ID:        cred.ID,
		LastName:  cred.LastName,
		FirstName: cred.FirstName,
		Role:      role,
	}, nil
}

// Login authenticates and issues a session token
func (s *authServiceImpl) Login(ctx context.Context, role, login, password string) (*Session, error) {
	identity, err := s.Authenticate(ctx, role, login, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(identity)
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err, "id", identity.ID)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("User logged in", "id", identity.ID, "role", role)
	return &Session{Identity: identity, Token: token, ExpiresAt: expiresAt}, nil
}

// ParseToken returns the identity carried by a session token
func (s *authServiceImpl) ParseToken(token string) (*entity.Identity, error) {
	identity, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrAuthentication, err)
	}
	return identity, nil
}

// SetPassword stores a new hash for login
func (s *authServiceImpl) SetPassword(ctx context.Context, role, login, password string) error {
	repo, err := s.credentials(role)
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", entity.ErrValidation)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := repo.UpdatePasswordHash(ctx, login, hash)
	if err != nil {
		s.logger.Error("Failed to update password", "error", err, "role", role, "login", login)
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no %s with login %q", entity.ErrNotFound, role, login)
	}

	s.logger.Info("Password updated", "role", role, "login", login)
	return nil
}
