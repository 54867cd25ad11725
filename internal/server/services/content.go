// Package services contains server-side business logic: the content
// collections and singletons, the current CV and admin authentication.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ContentService implements the ordered collections and the generic
// singletons (hero, about, contact).
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
	newID       func() string
}

// NewContentService constructs a ContentService. Every store call is bounded
// by cfg.DBTimeout.
func NewContentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		timeout:     cfg.DBTimeout,
		newID:       uuid.NewString,
	}
}

// List returns the whole collection in display order.
func (s *ContentService) List(ctx context.Context, collection string) ([]*models.Document, error) {
	if _, err := LookupCollection(collection); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.repomanager.Documents(s.db).List(ctx, collection)
}

// Create validates the required fields and stores a new document. An explicit
// integer "order" is honored, otherwise the document is appended.
func (s *ContentService) Create(ctx context.Context, collection string, fields map[string]any) (*models.Document, error) {
	spec, err := LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	if err := requireFields(spec, fields, false); err != nil {
		return nil, err
	}
	order, err := orderFrom(fields)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	doc := &models.Document{
		ID:         s.newID(),
		Collection: collection,
		Fields:     models.StripReserved(fields),
	}
	return s.repomanager.Documents(s.db).Create(ctx, doc, order)
}

// Update merges patch into the document. An unknown id yields (nil, nil).
func (s *ContentService) Update(ctx context.Context, collection, id string, patch map[string]any) (*models.Document, error) {
	spec, err := LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", common.ErrorValidation)
	}
	if err := requireFields(spec, patch, true); err != nil {
		return nil, err
	}
	order, err := orderFrom(patch)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Documents(s.db)
	fields := models.StripReserved(patch)

	var doc *models.Document
	if len(fields) == 0 && order == nil {
		// nothing to write; answer with the stored document
		doc, err = repo.Get(ctx, collection, id)
	} else {
		doc, err = repo.Update(ctx, collection, id, fields, order)
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return doc, err
}

// Delete removes a document. Deleting an unknown id is not an error.
func (s *ContentService) Delete(ctx context.Context, collection, id string) error {
	if _, err := LookupCollection(collection); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", common.ErrorValidation)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.repomanager.Documents(s.db).Delete(ctx, collection, id)
	return err
}

// Reorder applies every (id, order) pair inside one transaction. Unknown ids
// are reported with Applied=false and do not fail the batch; a database error
// rolls the whole batch back.
func (s *ContentService) Reorder(ctx context.Context, collection string, items []models.ReorderItem) ([]models.ReorderResult, error) {
	spec, err := LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	if !spec.Orderable {
		return nil, fmt.Errorf("%w: %s", common.ErrNotOrderable, collection)
	}
	for i, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			return nil, fmt.Errorf("%w: items[%d].id is required", common.ErrorValidation, i)
		}
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	results := make([]models.ReorderResult, 0, len(items))
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)
		for _, it := range items {
			applied, err := repo.SetOrder(ctx, collection, it.ID, it.Order)
			if err != nil {
				return fmt.Errorf("reorder %s: %w", it.ID, err)
			}
			results = append(results, models.ReorderResult{ID: it.ID, Order: it.Order, Applied: applied})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Singleton returns the value stored under key, or nil when unset.
func (s *ContentService) Singleton(ctx context.Context, key string) (json.RawMessage, error) {
	if err := checkSingleton(key); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.repomanager.Singletons(s.db).Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.Value, nil
}

// PutSingleton overwrites the value under key. The value must be a JSON object.
func (s *ContentService) PutSingleton(ctx context.Context, key string, value json.RawMessage) (json.RawMessage, error) {
	if err := checkSingleton(key); err != nil {
		return nil, err
	}
	if err := requireObject(value); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.repomanager.Singletons(s.db).Put(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return v.Value, nil
}

// DeleteSingleton clears key.
func (s *ContentService) DeleteSingleton(ctx context.Context, key string) error {
	if err := checkSingleton(key); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.repomanager.Singletons(s.db).Delete(ctx, key)
}

// --- helpers below ---

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// requireFields checks spec.Required. With partial set only the fields present
// in the map are checked, so a patch cannot blank a required field.
func requireFields(spec CollectionSpec, fields map[string]any, partial bool) error {
	for _, name := range spec.Required {
		v, ok := fields[name]
		if !ok && partial {
			continue
		}
		if !ok || isBlank(v) {
			return fmt.Errorf("%w: %s is required", common.ErrorValidation, name)
		}
	}
	return nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// orderFrom extracts an optional integer "order" from fields.
func orderFrom(fields map[string]any) (*int, error) {
	raw, ok := fields[models.FieldOrder]
	if !ok || raw == nil {
		return nil, nil
	}

	n, ok := asInt(raw)
	if !ok {
		return nil, fmt.Errorf("%w: order must be an integer", common.ErrorValidation)
	}
	return &n, nil
}

// asInt accepts the integral values JSON decoding can produce.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func requireObject(value json.RawMessage) error {
	var obj map[string]any
	if err := json.Unmarshal(value, &obj); err != nil || obj == nil {
		return fmt.Errorf("%w: body must be a JSON object", common.ErrorValidation)
	}
	return nil
}
