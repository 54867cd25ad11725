package documents

import (
	"context"

	"github.com/dmitrijs2005/folio/internal/server/models"
)

// Repository persists collection documents.
type Repository interface {
	// List returns every document of collection ordered by order ascending,
	// then creation time descending, then id.
	List(ctx context.Context, collection string) ([]*models.Document, error)
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	// Create inserts doc. When order is nil the document is appended with
	// order equal to the current collection size.
	Create(ctx context.Context, doc *models.Document, order *int) (*models.Document, error)
	// Update merges patch into the stored fields and optionally moves the
	// document. Returns common.ErrorNotFound for an unknown id.
	Update(ctx context.Context, collection, id string, patch map[string]any, order *int) (*models.Document, error)
	// SetOrder overwrites only the order of one document and reports whether
	// it exists.
	SetOrder(ctx context.Context, collection, id string, order int) (bool, error)
	// Delete removes a document and reports whether it existed.
	Delete(ctx context.Context, collection, id string) (bool, error)
}
