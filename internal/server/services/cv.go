package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
)

// Presigner issues short-lived download URLs for remote objects.
type Presigner interface {
	PresignGet(ctx context.Context, key, filename string) (string, error)
}

// Download tells the caller how to deliver the current CV: stream the local
// file at Path, or redirect to RedirectURL.
type Download struct {
	Path        string
	Filename    string
	RedirectURL string
}

// CVService keeps the single current CV record and resolves it for download.
type CVService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
	uploadDir   string
	routePrefix string
	publicBase  string
	presigner   Presigner
}

// NewCVService constructs a CVService. presigner may be nil when the remote
// store is not configured.
func NewCVService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, presigner Presigner) *CVService {
	return &CVService{
		db:          db,
		repomanager: m,
		timeout:     cfg.DBTimeout,
		uploadDir:   cfg.UploadDir,
		routePrefix: strings.TrimRight(cfg.UploadRoutePrefix, "/"),
		publicBase:  strings.TrimRight(cfg.S3PublicBaseURL, "/"),
		presigner:   presigner,
	}
}

// Get returns the current CV or nil when none is set.
func (s *CVService) Get(ctx context.Context) (*models.CV, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.repomanager.Singletons(s.db).Get(ctx, models.SingletonCV)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cv := &models.CV{}
	if err := json.Unmarshal(v.Value, cv); err != nil {
		return nil, fmt.Errorf("decode cv: %w", err)
	}
	cv.UpdatedAt = v.UpdatedAt
	return cv, nil
}

// Put replaces the current CV. The filename defaults to the last URL segment.
func (s *CVService) Put(ctx context.Context, cv models.CV) (*models.CV, error) {
	cv.URL = strings.TrimSpace(cv.URL)
	if cv.URL == "" {
		return nil, fmt.Errorf("%w: url is required", common.ErrorValidation)
	}
	if strings.TrimSpace(cv.Filename) == "" {
		cv.Filename = path.Base(cv.URL)
	}

	value, err := json.Marshal(struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}{cv.URL, cv.Filename})
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stored, err := s.repomanager.Singletons(s.db).Put(ctx, models.SingletonCV, value)
	if err != nil {
		return nil, err
	}
	cv.UpdatedAt = stored.UpdatedAt
	return &cv, nil
}

// Delete clears the current CV.
func (s *CVService) Delete(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.repomanager.Singletons(s.db).Delete(ctx, models.SingletonCV)
}

// Resolve decides how the current CV is delivered, in priority order: a file
// under the local upload prefix, an object under the remote public base
// (presigned), then any other absolute http(s) URL. No CV, a missing local
// file or an unusable URL yield common.ErrorNotFound.
func (s *CVService) Resolve(ctx context.Context) (*Download, error) {
	cv, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cv == nil {
		return nil, fmt.Errorf("%w: no cv", common.ErrorNotFound)
	}

	if name, ok := s.localName(cv.URL); ok {
		p := filepath.Join(s.uploadDir, name)
		if fi, err := os.Stat(p); err != nil || !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: cv file %s", common.ErrorNotFound, name)
		}
		return &Download{Path: p, Filename: displayName(cv, name)}, nil
	}

	if s.publicBase != "" && strings.HasPrefix(cv.URL, s.publicBase+"/") {
		if s.presigner == nil {
			return nil, common.ErrRemoteNotConfigured
		}
		key := strings.TrimPrefix(cv.URL, s.publicBase+"/")
		signed, err := s.presigner.PresignGet(ctx, key, displayName(cv, path.Base(key)))
		if err != nil {
			return nil, fmt.Errorf("presign cv: %w", err)
		}
		return &Download{RedirectURL: signed}, nil
	}

	u, err := url.Parse(cv.URL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return &Download{RedirectURL: cv.URL}, nil
	}

	return nil, fmt.Errorf("%w: cv url %q is not downloadable", common.ErrorNotFound, cv.URL)
}

// localName returns the file name when raw is a path under the upload route
// prefix. Nested or traversing names are rejected.
func (s *CVService) localName(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, s.routePrefix+"/")
	if !ok || rest == "" || rest != path.Base(rest) || rest == "." || rest == ".." {
		return "", false
	}
	return rest, true
}

func displayName(cv *models.CV, fallback string) string {
	if cv.Filename != "" {
		return cv.Filename
	}
	return fallback
}
