package media

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// maxParallelUploads caps how many files of one batch are stored at once.
const maxParallelUploads = 4

// LocalBackend stores documents.
type LocalBackend interface {
	Store(ctx context.Context, f File) (*models.Artifact, error)
}

// RemoteBackend stores images and videos.
type RemoteBackend interface {
	Configured() bool
	Store(ctx context.Context, f File, p Preset) (*models.Artifact, error)
}

// Router classifies uploaded files and hands each to its backend.
type Router struct {
	local  LocalBackend
	remote RemoteBackend
	log    logging.Logger
}

func NewRouter(local LocalBackend, remote RemoteBackend, log logging.Logger) *Router {
	if log == nil {
		log = logging.Nop{}
	}
	return &Router{local: local, remote: remote, log: log.With("module", "media")}
}

// Ingest stores every file and returns one result per file in input order.
// The returned error is non-nil only when the batch was rejected before any
// file was touched; per-file failures are reported in the results.
func (r *Router) Ingest(ctx context.Context, files []File) ([]models.FileResult, error) {
	if r.remote == nil || !r.remote.Configured() {
		return nil, common.ErrRemoteNotConfigured
	}

	results := make([]models.FileResult, len(files))

	// Failures are recorded per file, so the group never cancels siblings.
	var g errgroup.Group
	g.SetLimit(maxParallelUploads)

	for i, f := range files {
		g.Go(func() error {
			results[i] = r.ingestOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (r *Router) ingestOne(ctx context.Context, f File) (res models.FileResult) {
	kind := Classify(f.Name, f.ContentType)
	res = models.FileResult{Filename: f.Name, Kind: kind.String()}

	defer func() {
		if p := recover(); p != nil {
			res.Artifact = nil
			res.Error = fmt.Sprintf("panic: %v", p)
			r.log.Error(ctx, "upload panicked", "file", f.Name, "panic", p)
		}
	}()

	var (
		art *models.Artifact
		err error
	)
	switch kind {
	case KindDocument:
		art, err = r.local.Store(ctx, f)
	case KindVideo:
		art, err = r.remote.Store(ctx, f, VideoPreset)
	default:
		art, err = r.remote.Store(ctx, f, ImagePreset)
	}

	if err != nil {
		r.log.Warn(ctx, "upload failed", "file", f.Name, "kind", kind.String(), "err", err)
		res.Error = err.Error()
		return res
	}

	r.log.Info(ctx, "upload stored", "file", f.Name, "backend", art.Backend, "size", art.Size, "originalSize", art.OriginalSize)
	res.Artifact = art
	return res
}
