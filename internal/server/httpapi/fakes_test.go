package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/media"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/services"
	"github.com/stretchr/testify/require"
)

// ---- content ----

type fakeContent struct {
	docs       map[string][]*models.Document
	singletons map[string]json.RawMessage

	err       error
	panicList bool

	created   map[string]any
	updatedID string
	patch     map[string]any
	deletedID string
	reordered []models.ReorderItem
}

func newFakeContent() *fakeContent {
	return &fakeContent{docs: map[string][]*models.Document{}, singletons: map[string]json.RawMessage{}}
}

func known(collection string) error {
	_, err := services.LookupCollection(collection)
	return err
}

func (f *fakeContent) List(_ context.Context, c string) ([]*models.Document, error) {
	if f.panicList {
		panic("list exploded")
	}
	if err := known(c); err != nil {
		return nil, err
	}
	return f.docs[c], f.err
}

func (f *fakeContent) Create(_ context.Context, c string, fields map[string]any) (*models.Document, error) {
	if err := known(c); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	f.created = fields
	doc := &models.Document{ID: "new-1", Collection: c, Order: len(f.docs[c]), Fields: models.StripReserved(fields)}
	f.docs[c] = append(f.docs[c], doc)
	return doc, nil
}

func (f *fakeContent) Update(_ context.Context, c, id string, patch map[string]any) (*models.Document, error) {
	if err := known(c); err != nil {
		return nil, err
	}
	f.updatedID, f.patch = id, patch
	for _, d := range f.docs[c] {
		if d.ID == id {
			for k, v := range patch {
				d.Fields[k] = v
			}
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeContent) Delete(_ context.Context, c, id string) error {
	if err := known(c); err != nil {
		return err
	}
	f.deletedID = id
	return f.err
}

func (f *fakeContent) Reorder(_ context.Context, c string, items []models.ReorderItem) ([]models.ReorderResult, error) {
	spec, err := services.LookupCollection(c)
	if err != nil {
		return nil, err
	}
	if !spec.Orderable {
		return nil, common.ErrNotOrderable
	}
	f.reordered = items
	out := make([]models.ReorderResult, 0, len(items))
	for _, it := range items {
		applied := false
		for _, d := range f.docs[c] {
			if d.ID == it.ID {
				d.Order, applied = it.Order, true
			}
		}
		out = append(out, models.ReorderResult{ID: it.ID, Order: it.Order, Applied: applied})
	}
	return out, nil
}

func (f *fakeContent) Singleton(_ context.Context, key string) (json.RawMessage, error) {
	v, ok := f.singletons[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (f *fakeContent) PutSingleton(_ context.Context, key string, value json.RawMessage) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(value, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", common.ErrorValidation)
	}
	f.singletons[key] = value
	return value, nil
}

func (f *fakeContent) DeleteSingleton(_ context.Context, key string) error {
	delete(f.singletons, key)
	return nil
}

// ---- cv ----

type fakeCV struct {
	cv       *models.CV
	download *services.Download
	err      error
}

func (f *fakeCV) Get(context.Context) (*models.CV, error) { return f.cv, f.err }

func (f *fakeCV) Put(_ context.Context, cv models.CV) (*models.CV, error) {
	if cv.URL == "" {
		return nil, fmt.Errorf("%w: url is required", common.ErrorValidation)
	}
	f.cv = &cv
	return &cv, nil
}

func (f *fakeCV) Delete(context.Context) error {
	f.cv = nil
	return nil
}

func (f *fakeCV) Resolve(context.Context) (*services.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.download == nil {
		return nil, fmt.Errorf("%w: no cv", common.ErrorNotFound)
	}
	return f.download, nil
}

// ---- auth ----

type fakeAuth struct {
	enabled bool
}

func (f fakeAuth) Enabled() bool { return f.enabled }

func (f fakeAuth) Login(_ context.Context, u, p string) (string, error) {
	if !f.enabled {
		return "", fmt.Errorf("%w: authentication is disabled", common.ErrorUnauthorized)
	}
	if u == "admin" && p == "secret" {
		return "good-token", nil
	}
	return "", common.ErrorUnauthorized
}

func (f fakeAuth) Verify(token string) (string, error) {
	if token == "good-token" {
		return "admin", nil
	}
	return "", fmt.Errorf("%w: bad signature", common.ErrInvalidToken)
}

// ---- media ----

type fakeIngester struct {
	mu       sync.Mutex
	got      map[string]string
	failOn   map[string]bool
	err      error
	received int
}

func (f *fakeIngester) Ingest(_ context.Context, files []media.File) ([]models.FileResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.got == nil {
		f.got = map[string]string{}
	}
	f.received = len(files)

	out := make([]models.FileResult, 0, len(files))
	for _, file := range files {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		f.got[file.Name] = string(b)

		kind := media.Classify(file.Name, file.ContentType).String()
		if f.failOn[file.Name] {
			out = append(out, models.FileResult{Filename: file.Name, Kind: kind, Error: "remote unavailable"})
			continue
		}
		out = append(out, models.FileResult{
			Filename: file.Name,
			Kind:     kind,
			Artifact: &models.Artifact{Filename: file.Name, URL: "/uploads/cv/" + file.Name, Backend: models.BackendLocal, Size: int64(len(b))},
		})
	}
	return out, nil
}

// ---- db ----

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

// ---- logger ----

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level, msg, args})
}

func (l recordingLogger) Debug(_ context.Context, m string, a ...any) { l.add("debug", m, a) }
func (l recordingLogger) Info(_ context.Context, m string, a ...any)  { l.add("info", m, a) }
func (l recordingLogger) Warn(_ context.Context, m string, a ...any)  { l.add("warn", m, a) }
func (l recordingLogger) Error(_ context.Context, m string, a ...any) { l.add("error", m, a) }
func (l recordingLogger) With(...any) logging.Logger                 { return l }

func (l recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range *l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// ---- harness ----

type testEnv struct {
	cfg     *config.Config
	content *fakeContent
	cv      *fakeCV
	auth    fakeAuth
	media   *fakeIngester
	db      fakePinger
	log     recordingLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.UploadDir = t.TempDir()
	return &testEnv{
		cfg:     cfg,
		content: newFakeContent(),
		cv:      &fakeCV{},
		media:   &fakeIngester{},
		log:     newRecordingLogger(),
	}
}

func (e *testEnv) handler() http.Handler {
	return NewHandler(e.cfg, Deps{
		Content: e.content,
		CV:      e.cv,
		Auth:    e.auth,
		Media:   e.media,
		DB:      e.db,
	}, e.log)
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func do(t *testing.T, h http.Handler, method, target string, body any, header map[string]string) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}
