package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/documents"
	"github.com/dmitrijs2005/folio/internal/server/repositories/singletons"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DBTimeout = time.Second
	return cfg
}

// --- in-memory repositories ---

type fakeDocs struct {
	mu    sync.Mutex
	clock time.Time
	rows  map[string][]*models.Document

	setOrderErr error
	listErr     error
	// handles records which DBTX each call was bound to.
	handles []dbx.DBTX
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		rows:  map[string][]*models.Document{},
	}
}

func (f *fakeDocs) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeDocs) find(collection, id string) *models.Document {
	for _, d := range f.rows[collection] {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func copyDoc(d *models.Document) *models.Document {
	c := *d
	c.Fields = map[string]any{}
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	return &c
}

func (f *fakeDocs) List(_ context.Context, collection string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]*models.Document, 0, len(f.rows[collection]))
	for _, d := range f.rows[collection] {
		out = append(out, copyDoc(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeDocs) Get(_ context.Context, collection, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := f.find(collection, id); d != nil {
		return copyDoc(d), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeDocs) Create(_ context.Context, doc *models.Document, order *int) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := copyDoc(doc)
	if order != nil {
		d.Order = *order
	} else {
		d.Order = len(f.rows[doc.Collection])
	}
	d.CreatedAt = f.tick()
	d.UpdatedAt = d.CreatedAt
	f.rows[doc.Collection] = append(f.rows[doc.Collection], d)
	return copyDoc(d), nil
}

func (f *fakeDocs) Update(_ context.Context, collection, id string, patch map[string]any, order *int) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := f.find(collection, id)
	if d == nil {
		return nil, common.ErrorNotFound
	}
	for k, v := range patch {
		d.Fields[k] = v
	}
	if order != nil {
		d.Order = *order
	}
	d.UpdatedAt = f.tick()
	return copyDoc(d), nil
}

func (f *fakeDocs) SetOrder(_ context.Context, collection, id string, order int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setOrderErr != nil {
		return false, f.setOrderErr
	}

	d := f.find(collection, id)
	if d == nil {
		return false, nil
	}
	d.Order = order
	return true, nil
}

func (f *fakeDocs) Delete(_ context.Context, collection, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.rows[collection]
	for i, d := range rows {
		if d.ID == id {
			f.rows[collection] = append(rows[:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeSingletons struct {
	mu     sync.Mutex
	values map[string]*models.Singleton
	getErr error
}

func newFakeSingletons() *fakeSingletons {
	return &fakeSingletons{values: map[string]*models.Singleton{}}
}

func (f *fakeSingletons) Get(_ context.Context, key string) (*models.Singleton, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *v
	return &c, nil
}

func (f *fakeSingletons) Put(_ context.Context, key string, value json.RawMessage) (*models.Singleton, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &models.Singleton{Key: key, Value: append(json.RawMessage(nil), value...), UpdatedAt: time.Now()}
	f.values[key] = v
	c := *v
	return &c, nil
}

func (f *fakeSingletons) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type fakeRepoMgr struct {
	docs  *fakeDocs
	singl *fakeSingletons
}

func newFakeRepoMgr() *fakeRepoMgr {
	return &fakeRepoMgr{docs: newFakeDocs(), singl: newFakeSingletons()}
}

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoMgr) Documents(db dbx.DBTX) documents.Repository {
	m.docs.mu.Lock()
	m.docs.handles = append(m.docs.handles, db)
	m.docs.mu.Unlock()
	return m.docs
}

func (m *fakeRepoMgr) Singletons(dbx.DBTX) singletons.Repository { return m.singl }
