package server

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubManager struct {
	repomanager.RepositoryManager
	migrateErr error
	migrated   bool
}

func (m *stubManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.migrateErr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.UploadDir = t.TempDir() + "/uploads/cv"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCHealthAddr = "127.0.0.1:0"
	return cfg
}

func withSeams(t *testing.T, db *sql.DB, dbErr error, rm repomanager.RepositoryManager) {
	t.Helper()
	origOpen, origRM, origLog := openDB, newRepositoryManager, stdoutLogger
	t.Cleanup(func() {
		openDB, newRepositoryManager, stdoutLogger = origOpen, origRM, origLog
	})

	openDB = func(context.Context, string) (*sql.DB, error) { return db, dbErr }
	newRepositoryManager = func() repomanager.RepositoryManager { return rm }
	stdoutLogger = func(string) logging.Logger { return logging.Nop{} }
}

func TestNewApp_DBError(t *testing.T) {
	withSeams(t, nil, errors.New("connection refused"), nil)

	_, err := NewApp(testConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp_MigrationErrorClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	rm := &stubManager{RepositoryManager: repomanager.NewPostgresRepositoryManager(), migrateErr: errors.New("dirty")}
	withSeams(t, db, nil, rm)

	_, err = NewApp(testConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: dirty")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_WiresHandler(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := &stubManager{RepositoryManager: repomanager.NewPostgresRepositoryManager()}
	withSeams(t, db, nil, rm)

	cfg := testConfig(t)
	app, err := NewApp(cfg)
	require.NoError(t, err)
	assert.True(t, rm.migrated)

	st, err := os.Stat(cfg.UploadDir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"mediaBucket":"portfolio"}}`, rec.Body.String())

	// remote credentials are absent in the defaults
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "resume.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF"))
	require.NoError(t, mw.Close())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	withSeams(t, db, nil, &stubManager{RepositoryManager: repomanager.NewPostgresRepositoryManager()})

	app, err := NewApp(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
