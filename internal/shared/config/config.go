package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const devJWTSecret = "dev-secret-change-me-dev-secret-change-me"

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	DatabaseURL        string
	Env                string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	MaxUploadBytes     int64
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from env files, an optional YAML file, and the
// process environment, in increasing order of precedence.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	file := fileConfig{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		loaded, err := loadYAMLFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	env := normalizeEnv(getEnv("ENV", file.Env, "dev"))

	accessTTL, err := getDuration("ACCESS_TOKEN_TTL", file.Auth.AccessTokenTTL, 60*time.Minute)
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := getDuration("REFRESH_TOKEN_TTL", file.Auth.RefreshTokenTTL, 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	window, err := getDuration("RATE_LIMIT_WINDOW", file.RateLimit.Window, time.Minute)
	if err != nil {
		return Config{}, err
	}
	requests, err := getInt("RATE_LIMIT_REQUESTS", file.RateLimit.Requests, 100)
	if err != nil {
		return Config{}, err
	}
	cost, err := getInt("BCRYPT_COST", file.Auth.BcryptCost, 12)
	if err != nil {
		return Config{}, err
	}
	maxUpload, err := getInt("MAX_UPLOAD_BYTES", file.Uploads.MaxBytes, 10<<20)
	if err != nil {
		return Config{}, err
	}

	secret := getEnv("JWT_SECRET", file.Auth.JWTSecret, "")
	if secret == "" && env != "production" {
		secret = devJWTSecret
	}

	cfg := Config{
		Port:               getEnv("PORT", file.Port, "8080"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", strings.Join(file.CORSAllowOrigins, ","), "http://localhost:5173")),
		DatabaseURL:        getEnv("DATABASE_URL", file.DatabaseURL, ""),
		Env:                env,
		JWTSecret:          secret,
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		BcryptCost:         cost,
		RateLimitRequests:  requests,
		RateLimitWindow:    window,
		MaxUploadBytes:     int64(maxUpload),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", file.Storage.Type, "none")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", file.Storage.LocalDir, "./data"),
		AWSRegion:          getEnv("AWS_REGION", file.Storage.AWSRegion, ""),
		S3Bucket:           getEnv("S3_BUCKET", file.Storage.S3Bucket, ""),
		S3Prefix:           getEnv("S3_PREFIX", file.Storage.S3Prefix, ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", file.Storage.SSEKMSKeyID, ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", file.Google.ClientID, ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", file.Google.ClientSecret, ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", file.Google.RedirectURL, ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", file.Google.UIRedirectURL, ""),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Env == "production" {
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
		if len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
		}
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when OBJECT_STORE=s3"))
	}
	return errors.Join(errs...)
}

// WithDefaults fills zero-valued fields with the values Load would pick.
// Programmatic callers such as tests rely on it to build partial configs.
func (c Config) WithDefaults() Config {
	c.Env = normalizeEnv(c.Env)
	if c.JWTSecret == "" && c.Env != "production" {
		c.JWTSecret = devJWTSecret
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 60 * time.Minute
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.RateLimitRequests <= 0 {
		c.RateLimitRequests = 100
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = time.Minute
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	return c
}

// GoogleEnabled reports whether Google sign-in credentials are configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func getEnv(key, fileVal, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func getInt(key string, fileVal, def int) (int, error) {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}

// getDuration accepts Go duration strings ("15m") or bare integers as seconds.
func getDuration(key, fileVal string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = strings.TrimSpace(fileVal)
	}
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}
