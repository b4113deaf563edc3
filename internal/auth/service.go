package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Permission string

const (
	// PermRead covers listing, dumpstate and the live stream.
	PermRead Permission = "read"
	// PermControl covers set power and wakeout.
	PermControl Permission = "control"
	// PermConfigure covers the default wakeout length.
	PermConfigure Permission = "configure"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// operatorNamespace derives stable operator ids from usernames.
var operatorNamespace = uuid.MustParse("6f2b0c5e-8a1d-4e7f-9b3c-2d4a5e6f7a8b")

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID      uuid.UUID
	Username    string
	Role        string
	Permissions []Permission
}

type loginAttempts struct {
	failures    int
	lockedUntil time.Time
}

type AuthService struct {
	enabled        bool
	operators      map[string]config.OperatorConfig
	serviceTokens  map[string]config.ServiceTokenConfig
	jwtHandler     *JWTHandler
	passwordHasher *PasswordHasher
	maxFailures    int
	lockDuration   time.Duration
	logger         *zap.Logger

	mu       sync.Mutex
	attempts map[string]*loginAttempts
	now      func() time.Time
}

func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	a := &AuthService{
		enabled:        cfg.Enabled,
		operators:      make(map[string]config.OperatorConfig, len(cfg.Operators)),
		serviceTokens:  make(map[string]config.ServiceTokenConfig, len(cfg.ServiceTokens)),
		jwtHandler:     NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL),
		passwordHasher: NewPasswordHasher(),
		maxFailures:    cfg.MaxFailedLoginAttempts,
		lockDuration:   cfg.AccountLockDuration,
		logger:         logger,
		attempts:       make(map[string]*loginAttempts),
		now:            time.Now,
	}
	for _, op := range cfg.Operators {
		a.operators[op.Username] = op
	}
	for _, tok := range cfg.ServiceTokens {
		a.serviceTokens[tok.TokenHash] = tok
	}

	if cfg.Enabled && !cfg.IsProductionReady() {
		logger.Warn("JWT secret is not production ready, set a 32+ character secret",
			zap.String("env", cfg.JWTSecretEnv))
	}

	return a
}

func (a *AuthService) Enabled() bool { return a.enabled }

// Login verifies an operator's password and returns an access token.
func (a *AuthService) Login(username, password, ipAddress string) (string, time.Time, error) {
	if err := a.checkLock(username); err != nil {
		a.logger.Warn("Login rejected", zap.String("username", username),
			zap.String("ip", ipAddress), zap.Error(err))
		return "", time.Time{}, err
	}

	op, ok := a.operators[username]
	if !ok {
		a.logger.Warn("Login failed", zap.String("username", username),
			zap.String("ip", ipAddress), zap.String("reason", "unknown user"))
		return "", time.Time{}, ErrInvalidCredentials
	}

	valid, err := a.passwordHasher.VerifyPassword(password, op.PasswordHash)
	if err != nil || !valid {
		a.recordFailure(username)
		a.logger.Warn("Login failed", zap.String("username", username),
			zap.String("ip", ipAddress), zap.String("reason", "invalid password"))
		return "", time.Time{}, ErrInvalidCredentials
	}

	a.resetFailures(username)

	token, expiresAt, err := a.jwtHandler.GenerateAccessToken(OperatorID(username), username, op.Role)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	a.logger.Info("Operator logged in", zap.String("username", username), zap.String("role", op.Role))
	return token, expiresAt, nil
}

func (a *AuthService) checkLock(username string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	at, ok := a.attempts[username]
	if !ok || at.lockedUntil.IsZero() {
		return nil
	}
	if a.now().Before(at.lockedUntil) {
		return fmt.Errorf("%w until %s", ErrAccountLocked, at.lockedUntil.Format(time.RFC3339))
	}
	delete(a.attempts, username)
	return nil
}

func (a *AuthService) recordFailure(username string) {
	if a.maxFailures <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	at, ok := a.attempts[username]
	if !ok {
		at = &loginAttempts{}
		a.attempts[username] = at
	}
	at.failures++
	if at.failures >= a.maxFailures {
		at.lockedUntil = a.now().Add(a.lockDuration)
	}
}

func (a *AuthService) resetFailures(username string) {
	a.mu.Lock()
	delete(a.attempts, username)
	a.mu.Unlock()
}

// ValidateToken accepts an operator access token or a service token.
func (a *AuthService) ValidateToken(token string) (*Principal, error) {
	if IsServiceToken(token) {
		tok, ok := a.serviceTokens[HashServiceToken(token)]
		if !ok {
			return nil, ErrInvalidToken
		}
		return &Principal{
			Username:    tok.Name,
			Role:        tok.Role,
			Permissions: RoleToPermissions(tok.Role),
		}, nil
	}

	claims, err := a.jwtHandler.ValidateAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Principal{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Role:        claims.Role,
		Permissions: RoleToPermissions(claims.Role),
	}, nil
}

func RoleToPermissions(role string) []Permission {
	switch role {
	case config.RoleAdmin:
		return []Permission{PermRead, PermControl, PermConfigure}
	case config.RoleOperator:
		return []Permission{PermRead, PermControl}
	default:
		return []Permission{PermRead}
	}
}

// OperatorID is the stable id of an operator account.
func OperatorID(username string) uuid.UUID {
	return uuid.NewSHA1(operatorNamespace, []byte(username))
}

// HashPassword hashes with the default argon2id parameters.
func HashPassword(password string) (string, error) {
	return NewPasswordHasher().HashPassword(password)
}
