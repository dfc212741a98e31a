package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
// Durations are strings ("15m", "720h").
type fileConfig struct {
	Env              string   `yaml:"env"`
	Port             string   `yaml:"port"`
	DatabaseURL      string   `yaml:"database_url"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
	Auth             struct {
		JWTSecret       string `yaml:"jwt_secret"`
		AccessTokenTTL  string `yaml:"access_token_ttl"`
		RefreshTokenTTL string `yaml:"refresh_token_ttl"`
		BcryptCost      int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	RateLimit struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	} `yaml:"rate_limit"`
	Uploads struct {
		MaxBytes int `yaml:"max_bytes"`
	} `yaml:"uploads"`
	Storage struct {
		Type        string `yaml:"type"`
		LocalDir    string `yaml:"local_dir"`
		AWSRegion   string `yaml:"aws_region"`
		S3Bucket    string `yaml:"s3_bucket"`
		S3Prefix    string `yaml:"s3_prefix"`
		SSEKMSKeyID string `yaml:"sse_kms_key_id"`
	} `yaml:"storage"`
	Google struct {
		ClientID      string `yaml:"client_id"`
		ClientSecret  string `yaml:"client_secret"`
		RedirectURL   string `yaml:"redirect_url"`
		UIRedirectURL string `yaml:"ui_redirect_url"`
	} `yaml:"google"`
}

func loadYAMLFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
