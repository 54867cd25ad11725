package httpapi

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/folio/internal/server/media"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/services"
)

// ContentStore serves the ordered collections and the generic singletons.
type ContentStore interface {
	List(ctx context.Context, collection string) ([]*models.Document, error)
	Create(ctx context.Context, collection string, fields map[string]any) (*models.Document, error)
	Update(ctx context.Context, collection, id string, patch map[string]any) (*models.Document, error)
	Delete(ctx context.Context, collection, id string) error
	Reorder(ctx context.Context, collection string, items []models.ReorderItem) ([]models.ReorderResult, error)

	Singleton(ctx context.Context, key string) (json.RawMessage, error)
	PutSingleton(ctx context.Context, key string, value json.RawMessage) (json.RawMessage, error)
	DeleteSingleton(ctx context.Context, key string) error
}

// CVStore keeps the current CV.
type CVStore interface {
	Get(ctx context.Context) (*models.CV, error)
	Put(ctx context.Context, cv models.CV) (*models.CV, error)
	Delete(ctx context.Context) error
	Resolve(ctx context.Context) (*services.Download, error)
}

// Authenticator issues and checks admin tokens.
type Authenticator interface {
	Enabled() bool
	Login(ctx context.Context, username, password string) (string, error)
	Verify(token string) (string, error)
}

// Ingester stores uploaded files.
type Ingester interface {
	Ingest(ctx context.Context, files []media.File) ([]models.FileResult, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Content ContentStore
	CV      CVStore
	Auth    Authenticator
	Media   Ingester
	DB      Pinger
}
