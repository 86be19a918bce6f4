package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/offers-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	JWT       JWTConfig
	Company   CompanyConfig
	Portal    PortalConfig
	SMTP      SMTPConfig
	PDF       PDFConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Audit     AuditConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	AutoMigrate     bool
}

// AuthConfig holds the login credentials accepted by the API.
// AdminUsername/AdminPassword take precedence over Users, which is a
// comma separated list of "username:password" pairs. Passwords may be
// bcrypt hashes.
type AuthConfig struct {
	AdminUsername string
	AdminPassword string
	Users         string
	// APIKey authenticates service-to-service calls as APIKeyUsername
	APIKey         string
	APIKeyUsername string
}

type JWTConfig struct {
	Secret        string
	Issuer        string
	ExpiryMinutes int
}

// CompanyConfig is the issuing company profile printed on every document
type CompanyConfig struct {
	Name           string
	Email          string
	Address        string
	TaxID          string
	IBAN           string
	Phone          string
	LogoURL        string
	DefaultVATRate float64
	ValidityDays   int
}

type PortalConfig struct {
	// BaseURL is the public origin used in links sent to clients
	BaseURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether an SMTP relay is configured
func (s *SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type PDFConfig struct {
	Enabled bool
	// RemoteURL points at a running Chrome DevTools endpoint; empty launches a local browser
	RemoteURL string
	NoSandbox bool
	Timeout   int
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

type SecretsConfig struct {
	// Source is "environment", "vault" or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type AuditConfig struct {
	RetentionDays int
	// PurgeSchedule is a six-field cron expression (with seconds)
	PurgeSchedule string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
	// TrustProxy honours X-Forwarded-For when recording client IPs
	TrustProxy bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
	PermissionsPolicy     string

	// PortalContentSecurityPolicy overrides the policy of the public portal page
	PortalContentSecurityPolicy string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the per-IP limit for anonymous requests
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the per-tenant limit for authenticated requests
	RequestsPerMinuteAuth int
	// PortalRequestsPerMinute limits the public token routes per IP
	PortalRequestsPerMinute int
	WhitelistIPs            []string
	WhitelistPaths          []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ExpiryDuration returns the access token lifetime
func (j *JWTConfig) ExpiryDuration() time.Duration {
	return time.Duration(j.ExpiryMinutes) * time.Minute
}

// TimeoutDuration returns the PDF render timeout
func (p *PDFConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// Load reads .env, config.json and environment variables.
// It does not contact Key Vault; use LoadWithSecrets for that.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvAliases(v, &cfg)

	return &cfg, nil
}

// applyEnvAliases maps the short environment names used by deployments
// onto their config keys when the nested form was not set.
func applyEnvAliases(v *viper.Viper, cfg *Config) {
	aliases := []struct {
		env    string
		target *string
	}{
		{"ADMIN_USERNAME", &cfg.Auth.AdminUsername},
		{"ADMIN_PASSWORD", &cfg.Auth.AdminPassword},
		{"USERS", &cfg.Auth.Users},
		{"ADMIN_API_KEY", &cfg.Auth.APIKey},
		{"JWT_SECRET", &cfg.JWT.Secret},
		{"PUBLIC_BASE_URL", &cfg.Portal.BaseURL},
		{"AZURE_KEY_VAULT_NAME", &cfg.Secrets.KeyVaultName},
	}
	for _, a := range aliases {
		if *a.target == "" {
			*a.target = v.GetString(a.env)
		}
	}
}

// LoadWithSecrets loads configuration and resolves secrets from Azure Key Vault
// when USE_AZURE_KEY_VAULT=true and the environment is staging or production.
// Environment variables always override vault values.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault || !isValidEnv {
		logger.Info("Using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
			zap.Bool("use_key_vault", useKeyVault),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:      secrets.SourceVault,
		VaultName:   cfg.Secrets.KeyVaultName,
		Environment: cfg.App.Environment,
		Cache: secrets.CacheConfig{
			Enabled: cfg.Secrets.CacheEnabled,
			TTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if err := ApplySecrets(ctx, cfg, provider, logger); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault", zap.String("key_vault_name", cfg.Secrets.KeyVaultName))
	return cfg, nil
}

// ApplySecrets copies the known secrets from provider into cfg.
// Missing optional secrets are skipped; a missing JWT secret is an error.
func ApplySecrets(ctx context.Context, cfg *Config, provider *secrets.Provider, logger *zap.Logger) error {
	bindings := []struct {
		secret   string
		env      string
		target   *string
		required bool
	}{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host, false},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User, false},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password, false},
		{"jwt-secret", "JWT_SECRET", &cfg.JWT.Secret, true},
		{"admin-password", "ADMIN_PASSWORD", &cfg.Auth.AdminPassword, false},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.Auth.APIKey, false},
		{"smtp-password", "SMTP_PASSWORD", &cfg.SMTP.Password, false},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString, false},
	}

	for _, b := range bindings {
		value, err := provider.GetOrEnv(ctx, b.secret, b.env)
		if err != nil || value == "" {
			if b.required {
				return fmt.Errorf("failed to load required secret %s: %w", b.secret, err)
			}
			logger.Debug("Optional secret not set", zap.String("secret_name", b.secret))
			continue
		}
		*b.target = value
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Straye Offers API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "offers")
	v.SetDefault("database.user", "offers_user")
	v.SetDefault("database.password", "offers_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "offers.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.autoMigrate", false)

	v.SetDefault("auth.adminUsername", "")
	v.SetDefault("auth.adminPassword", "")
	v.SetDefault("auth.users", "")
	v.SetDefault("auth.apiKey", "")
	v.SetDefault("auth.apiKeyUsername", "service")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "offers-api")
	v.SetDefault("jwt.expiryMinutes", 12*60)

	v.SetDefault("company.name", "")
	v.SetDefault("company.email", "")
	v.SetDefault("company.address", "")
	v.SetDefault("company.taxId", "")
	v.SetDefault("company.iban", "")
	v.SetDefault("company.phone", "")
	v.SetDefault("company.logoUrl", "")
	v.SetDefault("company.defaultVatRate", 25.0)
	v.SetDefault("company.validityDays", 14)

	v.SetDefault("portal.baseUrl", "http://localhost:8080")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.fromName", "")

	v.SetDefault("pdf.enabled", true)
	v.SetDefault("pdf.remoteUrl", "")
	v.SetDefault("pdf.noSandbox", false)
	v.SetDefault("pdf.timeout", 30)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudConnectionString", "")
	v.SetDefault("storage.cloudContainer", "offers")

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.keyVaultName", "")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("audit.retentionDays", 365)
	v.SetDefault("audit.purgeSchedule", "0 30 3 * * *")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)
	v.SetDefault("server.trustProxy", false)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")
	v.SetDefault("security.portalContentSecurityPolicy", "")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 240)
	v.SetDefault("rateLimit.portalRequestsPerMinute", 30)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
