// Package config reads curricore's CURRICORE_* environment, optionally seeded
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment key.
const Prefix = "CURRICORE_"

// Config is the resolved process configuration.
type Config struct {
	StorageDriver string
	SQLitePath    string
	PostgresDSN   string
	DraftKey      string

	APIBaseURL     string
	APIRole        string
	APIToken       string
	APIReadRetries int

	RefCacheDriver string
	RedisAddr      string
	RefCacheTTL    time.Duration

	BlobDriver string
	BlobFSRoot string
	S3         S3Config

	HTTPAddr string
	LogMode  string
}

// S3Config groups the CURRICORE_BLOB_S3_* keys.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Load reads envFile when it exists (a missing file is not an error; values
// already present in the environment win) and resolves the configuration.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration through getenv, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(Prefix + key)); v != "" {
			return v
		}
		return def
	}
	cfg := Config{
		StorageDriver:  get("STORAGE_DRIVER", "sqlite"),
		SQLitePath:     get("SQLITE_PATH", "curricore.db"),
		PostgresDSN:    get("POSTGRES_DSN", ""),
		DraftKey:       get("DRAFT_KEY", "default"),
		APIBaseURL:     get("API_BASE_URL", "http://localhost:8000/api"),
		APIRole:        get("API_ROLE", "department"),
		APIToken:       get("API_TOKEN", ""),
		RefCacheDriver: get("REFCACHE_DRIVER", "memory"),
		RedisAddr:      get("REDIS_ADDR", "localhost:6379"),
		BlobDriver:     get("BLOB_DRIVER", "fs"),
		BlobFSRoot:     get("BLOB_FS_ROOT", "./blobdata"),
		S3: S3Config{
			Bucket:    get("BLOB_S3_BUCKET", ""),
			Region:    get("BLOB_S3_REGION", "us-east-1"),
			Endpoint:  get("BLOB_S3_ENDPOINT", ""),
			AccessKey: get("BLOB_S3_ACCESS_KEY", ""),
			SecretKey: get("BLOB_S3_SECRET_KEY", ""),
		},
		HTTPAddr: get("HTTP_ADDR", ":8080"),
		LogMode:  get("LOG_MODE", "dev"),
	}

	var err error
	if cfg.APIReadRetries, err = strconv.Atoi(get("API_READ_RETRIES", "3")); err != nil || cfg.APIReadRetries < 0 {
		return Config{}, fmt.Errorf("%sAPI_READ_RETRIES: invalid value %q", Prefix, get("API_READ_RETRIES", ""))
	}
	if cfg.RefCacheTTL, err = time.ParseDuration(get("REFCACHE_TTL", "5m")); err != nil {
		return Config{}, fmt.Errorf("%sREFCACHE_TTL: %w", Prefix, err)
	}
	if cfg.S3.UsePathStyle, err = strconv.ParseBool(get("BLOB_S3_USE_PATH_STYLE", "false")); err != nil {
		return Config{}, fmt.Errorf("%sBLOB_S3_USE_PATH_STYLE: %w", Prefix, err)
	}
	return cfg, nil
}
