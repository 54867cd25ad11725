package media

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/dmitrijs2005/folio/internal/filex"
	"github.com/dmitrijs2005/folio/internal/server/models"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName replaces every character outside [A-Za-z0-9._-] with "_".
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// LocalStore writes documents into a directory served under a URL prefix.
type LocalStore struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// NewLocalStore creates dir if needed and returns a store whose artifacts are
// addressed as <prefix>/<name>.
func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &LocalStore{dir: abs, prefix: prefix, now: time.Now}, nil
}

// Dir returns the absolute upload directory.
func (s *LocalStore) Dir() string { return s.dir }

// Store writes f as cv_<stamp>_<sanitized name>. The stamp is a nanosecond
// timestamp forced to increase strictly between calls.
func (s *LocalStore) Store(ctx context.Context, f File) (*models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	name := fmt.Sprintf("cv_%d_%s", s.stamp(), SanitizeName(f.Name))
	n, err := filex.WriteAtomic(s.dir, name, rc)
	if err != nil {
		return nil, err
	}

	return &models.Artifact{
		Filename:     f.Name,
		URL:          s.prefix + "/" + name,
		Backend:      models.BackendLocal,
		Key:          name,
		ContentType:  ContentType(f.Name, f.ContentType),
		Size:         n,
		OriginalSize: n,
	}, nil
}

func (s *LocalStore) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixNano()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}
