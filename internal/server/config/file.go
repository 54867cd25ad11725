package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/folio/internal/flagx"
	"github.com/dmitrijs2005/folio/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the optional config file. Durations
// accept "10s" style strings or integer nanoseconds. Zero values leave the
// corresponding setting untouched.
type FileConfig struct {
	HTTPAddr          string         `json:"http_addr" yaml:"http_addr"`
	GRPCHealthAddr    string         `json:"grpc_health_addr" yaml:"grpc_health_addr"`
	DatabaseDSN       string         `json:"database_dsn" yaml:"database_dsn"`
	DBTimeout         timex.Duration `json:"db_timeout" yaml:"db_timeout"`
	UploadDir         string         `json:"upload_dir" yaml:"upload_dir"`
	UploadRoutePrefix string         `json:"upload_route_prefix" yaml:"upload_route_prefix"`
	MaxUploadFiles    int            `json:"max_upload_files" yaml:"max_upload_files"`
	MaxUploadSize     int64          `json:"max_upload_size" yaml:"max_upload_size"`
	MediaTimeout      timex.Duration `json:"media_timeout" yaml:"media_timeout"`
	S3AccessKey       string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey       string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket          string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region          string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PublicBaseURL   string         `json:"s3_public_base_url" yaml:"s3_public_base_url"`
	S3Folder          string         `json:"s3_folder" yaml:"s3_folder"`
	JWTSecret         string         `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser         string         `json:"admin_user" yaml:"admin_user"`
	AdminPasswordHash string         `json:"admin_password_hash" yaml:"admin_password_hash"`
	TokenValidity     timex.Duration `json:"token_validity" yaml:"token_validity"`
	AllowedOrigins    []string       `json:"allowed_origins" yaml:"allowed_origins"`
	LogLevel          string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any.
func parseFile(cfg *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}
	return loadFile(cfg, path)
}

// loadFile decodes path as YAML when its extension is .yaml or .yml and as
// JSON otherwise, then overlays the non-zero values onto cfg.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setStr(&cfg.HTTPAddr, fc.HTTPAddr)
	setStr(&cfg.GRPCHealthAddr, fc.GRPCHealthAddr)
	setStr(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setStr(&cfg.UploadDir, fc.UploadDir)
	setStr(&cfg.UploadRoutePrefix, fc.UploadRoutePrefix)
	setStr(&cfg.S3AccessKey, fc.S3AccessKey)
	setStr(&cfg.S3SecretKey, fc.S3SecretKey)
	setStr(&cfg.S3Bucket, fc.S3Bucket)
	setStr(&cfg.S3Region, fc.S3Region)
	setStr(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setStr(&cfg.S3PublicBaseURL, fc.S3PublicBaseURL)
	setStr(&cfg.S3Folder, fc.S3Folder)
	setStr(&cfg.JWTSecret, fc.JWTSecret)
	setStr(&cfg.AdminUser, fc.AdminUser)
	setStr(&cfg.AdminPasswordHash, fc.AdminPasswordHash)
	setStr(&cfg.LogLevel, fc.LogLevel)

	if fc.DBTimeout.Duration > 0 {
		cfg.DBTimeout = fc.DBTimeout.Duration
	}
	if fc.MediaTimeout.Duration > 0 {
		cfg.MediaTimeout = fc.MediaTimeout.Duration
	}
	if fc.TokenValidity.Duration > 0 {
		cfg.TokenValidity = fc.TokenValidity.Duration
	}
	if fc.MaxUploadFiles > 0 {
		cfg.MaxUploadFiles = fc.MaxUploadFiles
	}
	if fc.MaxUploadSize > 0 {
		cfg.MaxUploadSize = fc.MaxUploadSize
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
}
