package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type lookupFunc func(key string) (string, bool)

// parseDotEnv overlays values from a dotenv file. A missing file is not an
// error. The process environment is not modified.
func parseDotEnv(cfg *Config, path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	parseEnv(cfg, func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	return nil
}

// parseEnv overlays every recognised variable that lookup reports as set.
// Malformed durations are ignored.
func parseEnv(cfg *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("FOLIO_HTTP_ADDR", &cfg.HTTPAddr)
	str("FOLIO_GRPC_ADDR", &cfg.GRPCHealthAddr)
	str("DATABASE_URL", &cfg.DatabaseDSN)
	dur("FOLIO_DB_TIMEOUT", &cfg.DBTimeout)
	str("FOLIO_UPLOAD_DIR", &cfg.UploadDir)
	dur("FOLIO_MEDIA_TIMEOUT", &cfg.MediaTimeout)
	str("S3_ACCESS_KEY", &cfg.S3AccessKey)
	str("S3_SECRET_KEY", &cfg.S3SecretKey)
	str("S3_BUCKET", &cfg.S3Bucket)
	str("S3_REGION", &cfg.S3Region)
	str("S3_ENDPOINT", &cfg.S3BaseEndpoint)
	str("S3_PUBLIC_URL", &cfg.S3PublicBaseURL)
	str("S3_FOLDER", &cfg.S3Folder)
	str("FOLIO_JWT_SECRET", &cfg.JWTSecret)
	str("FOLIO_ADMIN_USER", &cfg.AdminUser)
	str("FOLIO_ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	dur("FOLIO_TOKEN_VALIDITY", &cfg.TokenValidity)
	str("FOLIO_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("FOLIO_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
