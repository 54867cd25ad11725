package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/services"
)

// Content is the part of the content service used by export and import.
type Content interface {
	List(ctx context.Context, collection string) ([]*models.Document, error)
	Create(ctx context.Context, collection string, fields map[string]any) (*models.Document, error)
	Singleton(ctx context.Context, key string) (json.RawMessage, error)
	PutSingleton(ctx context.Context, key string, value json.RawMessage) (json.RawMessage, error)
}

// CVStore reads and replaces the current CV.
type CVStore interface {
	Get(ctx context.Context) (*models.CV, error)
	Put(ctx context.Context, cv models.CV) (*models.CV, error)
}

// Dump is the export/import file format.
type Dump struct {
	Collections map[string][]json.RawMessage `json:"collections"`
	Singletons  map[string]json.RawMessage   `json:"singletons"`
	CV          *models.CV                   `json:"cv,omitempty"`
}

// Stats counts what an import wrote.
type Stats struct {
	Documents  int
	Singletons int
	CV         bool
}

// Export writes every collection, every set singleton and the current CV to w
// as indented JSON.
func Export(ctx context.Context, content Content, cv CVStore, w io.Writer) error {
	d := Dump{
		Collections: map[string][]json.RawMessage{},
		Singletons:  map[string]json.RawMessage{},
	}

	for _, c := range services.Collections() {
		docs, err := content.List(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("list %s: %w", c.Name, err)
		}
		items := make([]json.RawMessage, 0, len(docs))
		for _, doc := range docs {
			raw, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", c.Name, doc.ID, err)
			}
			items = append(items, raw)
		}
		d.Collections[c.Name] = items
	}

	for _, key := range services.SingletonKeys() {
		v, err := content.Singleton(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if v != nil {
			d.Singletons[key] = v
		}
	}

	current, err := cv.Get(ctx)
	if err != nil {
		return fmt.Errorf("read cv: %w", err)
	}
	d.CV = current

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Import loads a dump. Documents are created with their exported order (new
// ids are assigned), singletons and the CV are overwritten. The first failure
// stops the import.
func Import(ctx context.Context, content Content, cv CVStore, r io.Reader) (Stats, error) {
	var st Stats

	var d Dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return st, fmt.Errorf("decode dump: %w", err)
	}

	names := make([]string, 0, len(d.Collections))
	for name := range d.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for i, raw := range d.Collections[name] {
			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
				return st, fmt.Errorf("%s[%d]: not a JSON object", name, i)
			}
			if _, err := content.Create(ctx, name, fields); err != nil {
				return st, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			st.Documents++
		}
	}

	keys := make([]string, 0, len(d.Singletons))
	for key := range d.Singletons {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := content.PutSingleton(ctx, key, d.Singletons[key]); err != nil {
			return st, fmt.Errorf("%s: %w", key, err)
		}
		st.Singletons++
	}

	if d.CV != nil {
		if _, err := cv.Put(ctx, *d.CV); err != nil {
			return st, fmt.Errorf("cv: %w", err)
		}
		st.CV = true
	}

	return st, nil
}
