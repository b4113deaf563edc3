package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Board    BoardConfig    `mapstructure:"board"`
	GPIO     GPIOConfig     `mapstructure:"gpio"`
	Detect   DetectConfig   `mapstructure:"detect"`
	Wakeout  WakeoutConfig  `mapstructure:"wakeout"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BoardConfig struct {
	Profile string `mapstructure:"profile"`
}

type GPIOConfig struct {
	Backend  string `mapstructure:"backend"`
	Chip     string `mapstructure:"chip"`
	Consumer string `mapstructure:"consumer"`
}

type DetectConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	DebounceDepth int           `mapstructure:"debounce_depth"`
}

type WakeoutConfig struct {
	// DefaultLengthUs of -1 selects the board profile's pulse length.
	DefaultLengthUs int `mapstructure:"default_length_us"`
	// MaxLengthUs caps explicit pulse lengths from operators.
	MaxLengthUs int `mapstructure:"max_length_us"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type AuthConfig struct {
	Enabled                bool                 `mapstructure:"enabled"`
	JWTSecretEnv           string               `mapstructure:"jwt_secret_env"`
	AccessTokenTTL         time.Duration        `mapstructure:"access_token_ttl"`
	MaxFailedLoginAttempts int                  `mapstructure:"max_failed_login_attempts"`
	AccountLockDuration    time.Duration        `mapstructure:"account_lock_duration"`
	Operators              []OperatorConfig     `mapstructure:"operators"`
	ServiceTokens          []ServiceTokenConfig `mapstructure:"service_tokens"`
}

// OperatorConfig is a console account. PasswordHash is an argon2id hash as
// produced by auth.HashPassword.
type OperatorConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

// ServiceTokenConfig is a static bearer token for automation clients.
// TokenHash is the hex sha256 of the token.
type ServiceTokenConfig struct {
	Name      string `mapstructure:"name"`
	TokenHash string `mapstructure:"token_hash"`
	Role      string `mapstructure:"role"`
}

const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

const devJWTSecret = "dev-secret-change-in-production-min-32-chars"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("board.profile", "configs/boards/evt2.yaml")

	v.SetDefault("gpio.backend", "sim")
	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.consumer", "openpowercore")

	v.SetDefault("detect.tick_interval", "5ms")
	v.SetDefault("detect.debounce_depth", 3)

	v.SetDefault("wakeout.default_length_us", -1)
	v.SetDefault("wakeout.max_length_us", 1000000)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "openpowercore")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	v.SetDefault("auth.access_token_ttl", "60m")
	v.SetDefault("auth.max_failed_login_attempts", 5)
	v.SetDefault("auth.account_lock_duration", "15m")
}

// Load reads the YAML config at path. Every key can be overridden from the
// environment with the OPC_ prefix, e.g. OPC_GPIO_BACKEND.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("OPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.GPIO.Backend {
	case "sim", "cdev":
	default:
		return fmt.Errorf("gpio.backend must be sim or cdev, got %q", c.GPIO.Backend)
	}

	if c.Detect.TickInterval < time.Millisecond || c.Detect.TickInterval > 10*time.Millisecond {
		return fmt.Errorf("detect.tick_interval must be between 1ms and 10ms, got %s", c.Detect.TickInterval)
	}
	if c.Detect.DebounceDepth < 1 {
		return fmt.Errorf("detect.debounce_depth must be at least 1, got %d", c.Detect.DebounceDepth)
	}

	if c.Wakeout.MaxLengthUs < 1 {
		return fmt.Errorf("wakeout.max_length_us must be at least 1, got %d", c.Wakeout.MaxLengthUs)
	}
	if c.Wakeout.DefaultLengthUs > c.Wakeout.MaxLengthUs {
		return fmt.Errorf("wakeout.default_length_us %d exceeds wakeout.max_length_us %d", c.Wakeout.DefaultLengthUs, c.Wakeout.MaxLengthUs)
	}

	if c.Board.Profile == "" {
		return fmt.Errorf("board.profile is required")
	}

	seen := make(map[string]bool)
	for _, op := range c.Auth.Operators {
		if op.Username == "" {
			return fmt.Errorf("auth.operators: username is required")
		}
		if seen[op.Username] {
			return fmt.Errorf("auth.operators: duplicate username %s", op.Username)
		}
		seen[op.Username] = true

		if !validRole(op.Role) {
			return fmt.Errorf("auth.operators: %s has unknown role %q", op.Username, op.Role)
		}
	}
	for _, tok := range c.Auth.ServiceTokens {
		if len(tok.TokenHash) != 64 {
			return fmt.Errorf("auth.service_tokens: %s needs a hex sha256 token_hash", tok.Name)
		}
		if !validRole(tok.Role) {
			return fmt.Errorf("auth.service_tokens: %s has unknown role %q", tok.Name, tok.Role)
		}
	}
	if c.Auth.Enabled && len(c.Auth.Operators) == 0 && len(c.Auth.ServiceTokens) == 0 {
		return fmt.Errorf("auth.enabled requires at least one operator or service token")
	}

	return nil
}

func validRole(role string) bool {
	switch role {
	case RoleViewer, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// GetJWTSecret reads the signing secret from the configured environment
// variable, falling back to a development secret.
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET"
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		return devJWTSecret
	}
	return secret
}

func (a *AuthConfig) IsProductionReady() bool {
	secret := a.GetJWTSecret()
	return secret != devJWTSecret && len(secret) >= 32
}
