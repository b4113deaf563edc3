package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func cheapHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := NewPasswordHasherWithParams(64, 1, 1).HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func newTestAuth(t *testing.T, tokens ...config.ServiceTokenConfig) *AuthService {
	t.Helper()
	return NewAuthService(config.AuthConfig{
		Enabled:                true,
		AccessTokenTTL:         time.Hour,
		MaxFailedLoginAttempts: 3,
		AccountLockDuration:    time.Minute,
		Operators: []config.OperatorConfig{
			{Username: "alice", PasswordHash: cheapHash(t, "s3cret"), Role: config.RoleOperator},
		},
		ServiceTokens: tokens,
	}, zaptest.NewLogger(t))
}

func TestPasswordHasher(t *testing.T) {
	ph := NewPasswordHasherWithParams(64, 1, 1)
	hash, err := ph.HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := ph.VerifyPassword("pw", hash)
	if err != nil || !ok {
		t.Errorf("expected match, got %v %v", ok, err)
	}
	if ok, _ := ph.VerifyPassword("wrong", hash); ok {
		t.Error("wrong password matched")
	}
	if _, err := ph.VerifyPassword("pw", "$bcrypt$x$y$z$w"); err == nil {
		t.Error("expected format error")
	}
	if _, err := ph.VerifyPassword("pw", strings.Replace(hash, "v=19", "v=16", 1)); err == nil {
		t.Error("expected version error")
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Errorf("unexpected encoding %s", hash)
	}
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t)

	token, expiresAt, err := a.Login("alice", "s3cret", "127.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("unexpected expiry %s", expiresAt)
	}

	p, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.Username != "alice" || p.UserID != OperatorID("alice") {
		t.Errorf("unexpected principal %+v", p)
	}
	if !slices.Contains(p.Permissions, PermControl) || slices.Contains(p.Permissions, PermConfigure) {
		t.Errorf("unexpected operator permissions %v", p.Permissions)
	}

	if _, _, err := a.Login("mallory", "x", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestLoginLockout(t *testing.T) {
	a := newTestAuth(t)
	now := time.Now()
	a.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, _, err := a.Login("alice", "bad", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if _, _, err := a.Login("alice", "s3cret", ""); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected lock, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, _, err := a.Login("alice", "s3cret", ""); err != nil {
		t.Errorf("lock should have expired: %v", err)
	}
}

func TestServiceToken(t *testing.T) {
	token, hash, err := GenerateServiceToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !IsServiceToken(token) {
		t.Fatal("generated token has the wrong shape")
	}

	a := newTestAuth(t, config.ServiceTokenConfig{Name: "ci", TokenHash: hash, Role: config.RoleAdmin})
	p, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.Username != "ci" || !slices.Contains(p.Permissions, PermConfigure) {
		t.Errorf("unexpected principal %+v", p)
	}

	other, _, _ := GenerateServiceToken()
	if _, err := a.ValidateToken(other); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown token accepted: %v", err)
	}
}

func TestRoleToPermissions(t *testing.T) {
	tests := []struct {
		role string
		want []Permission
	}{
		{config.RoleAdmin, []Permission{PermRead, PermControl, PermConfigure}},
		{config.RoleOperator, []Permission{PermRead, PermControl}},
		{config.RoleViewer, []Permission{PermRead}},
		{"bogus", []Permission{PermRead}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := RoleToPermissions(tt.role); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestAuth(t)
	token, _, err := a.Login("alice", "s3cret", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	router := gin.New()
	router.Use(a.AuthMiddleware())
	router.GET("/read", RequirePermission(PermRead), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/configure", RequirePermission(PermConfigure), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/read", "", http.StatusUnauthorized},
		{"malformed", "/read", "Token abc", http.StatusUnauthorized},
		{"bad token", "/read", "Bearer abc", http.StatusUnauthorized},
		{"allowed", "/read", "Bearer " + token, http.StatusOK},
		{"forbidden", "/configure", "Bearer " + token, http.StatusForbidden},
		{"query token", "/read?token=" + token, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := NewAuthService(config.AuthConfig{}, zaptest.NewLogger(t))

	router := gin.New()
	router.Use(a.AuthMiddleware())
	router.GET("/configure", RequirePermission(PermConfigure), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/configure", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", w.Code)
	}
}
