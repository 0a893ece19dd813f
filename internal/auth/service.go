package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUnknownSubject     = errors.New("auth: token subject no longer exists")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
	// ErrLastAdmin guards the invariant that every tenant keeps at least one
	// administrator: deleting or demoting the last one fails.
	ErrLastAdmin = errors.New("auth: cannot remove the last administrator of a tenant")
	// ErrUserQuotaExceeded is returned when a tenant is at its plan's
	// MaxUsers limit.
	ErrUserQuotaExceeded = errors.New("auth: tenant user quota exceeded")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Service verifies credentials and manages users under the tenancy
// invariants (last-admin guard, per-plan user quota).
type Service struct {
	users      domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Authenticate verifies a presented bearer token and resolves its subject to
// a live identity. Any token that is not a validly signed, unexpired access
// token fails; a valid token whose subject was deleted fails closed with
// ErrUnknownSubject.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*rbac.Identity, error) {
	claims, err := ValidateToken(s.jwtSecret, bearer)
	if err != nil {
		return nil, fmt.Errorf("auth.Authenticate: %w", err)
	}

	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("auth.Authenticate: %w", ErrTokenInvalid)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("auth.Authenticate: %w", ErrTokenInvalid)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Authenticate: %w", ErrUnknownSubject)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Authenticate: %w", err)
	}

	// The user row is authoritative for role and tenant; the token's copies
	// are only a cache that may be stale after a role change.
	role, err := rbac.ParseRole(user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth.Authenticate: %w", err)
	}

	// Best-effort bookkeeping; never affects the outcome.
	if updateErr := s.users.UpdateLastLogin(ctx, user.ID); updateErr != nil {
		log.Warn().Err(updateErr).Str("user_id", user.ID.String()).Msg("auth.Authenticate: failed to update last_login_at")
	}

	return &rbac.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     role,
		TenantID: user.TenantID,
	}, nil
}

// Login validates email and password within a tenant and returns access and
// refresh tokens. Lookup and verification failures collapse to
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, tenantID uuid.UUID, email, password string) (accessToken, refreshToken string, err error) {
	user, err := s.users.GetByEmail(ctx, tenantID, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return "", "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	role, err := rbac.ParseRole(user.Role)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	accessToken, err = IssueAccessToken(s.jwtSecret, user.TenantID, user.ID, role, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	refreshToken, err = IssueRefreshToken(s.jwtSecret, user.TenantID, user.ID, role, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Refresh validates a refresh token and issues a new access token with the
// subject's current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.Refresh: %w", err)
	}

	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("auth.Refresh: %w", ErrTokenInvalid)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("auth.Refresh: %w", ErrTokenInvalid)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("auth.Refresh: %w", ErrUnknownSubject)
	}

	role, err := rbac.ParseRole(user.Role)
	if err != nil {
		return "", fmt.Errorf("auth.Refresh: %w", err)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user.TenantID, user.ID, role, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.Refresh: %w", err)
	}

	return newAccess, nil
}

// CreateUser provisions a tenant-scoped user. The tenant's MaxUsers quota is
// enforced here; super_admin accounts are never created through this path.
func (s *Service) CreateUser(ctx context.Context, tenant *domain.Tenant, email, password, name string, role rbac.Role) (*domain.User, error) {
	if !role.TenantScoped() {
		return nil, fmt.Errorf("auth.CreateUser: role %q: %w", role, rbac.ErrUnknownRole)
	}

	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.users.GetByEmail(ctx, tenant.ID, email)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("auth.CreateUser: %w", ErrUserAlreadyExists)
	}

	if tenant.MaxUsers > 0 {
		count, countErr := s.users.CountByTenant(ctx, tenant.ID)
		if countErr != nil {
			return nil, fmt.Errorf("auth.CreateUser: %w", countErr)
		}
		if count >= tenant.MaxUsers {
			return nil, fmt.Errorf("auth.CreateUser: %w", ErrUserQuotaExceeded)
		}
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.CreateUser: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         string(role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth.CreateUser: %w", err)
	}

	return user, nil
}

// ChangeRole sets a user's role. Demoting the last administrator of a tenant
// fails with ErrLastAdmin.
func (s *Service) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, newRole rbac.Role) error {
	if !newRole.TenantScoped() {
		return fmt.Errorf("auth.ChangeRole: role %q: %w", newRole, rbac.ErrUnknownRole)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth.ChangeRole: %w", err)
	}
	if user.TenantID != tenantID {
		return fmt.Errorf("auth.ChangeRole: %w", domain.ErrNotFound)
	}

	if user.Role == string(rbac.RoleAdmin) && newRole != rbac.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, tenantID); err != nil {
			return fmt.Errorf("auth.ChangeRole: %w", err)
		}
	}

	if err := s.users.UpdateRole(ctx, tenantID, userID, string(newRole)); err != nil {
		return fmt.Errorf("auth.ChangeRole: %w", err)
	}

	return nil
}

// DeleteUser removes a user. Removing the last administrator of a tenant
// fails with ErrLastAdmin.
func (s *Service) DeleteUser(ctx context.Context, tenantID, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth.DeleteUser: %w", err)
	}
	if user.TenantID != tenantID {
		return fmt.Errorf("auth.DeleteUser: %w", domain.ErrNotFound)
	}

	if user.Role == string(rbac.RoleAdmin) {
		if err := s.requireAnotherAdmin(ctx, tenantID); err != nil {
			return fmt.Errorf("auth.DeleteUser: %w", err)
		}
	}

	if err := s.users.Delete(ctx, tenantID, userID); err != nil {
		return fmt.Errorf("auth.DeleteUser: %w", err)
	}

	return nil
}

func (s *Service) requireAnotherAdmin(ctx context.Context, tenantID uuid.UUID) error {
	admins, err := s.users.CountByRole(ctx, tenantID, string(rbac.RoleAdmin))
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash in constant time.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expected) == 1
}
