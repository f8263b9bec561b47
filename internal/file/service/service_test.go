package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telefiles/filedepot/internal/conf"
	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/data"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/database"
	apperrors "github.com/telefiles/filedepot/internal/pkg/errors"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"github.com/telefiles/filedepot/internal/pkg/ratelimit"
	"github.com/telefiles/filedepot/internal/pkg/workerpool"
)

type testEnv struct {
	router  *gin.Engine
	storage *biz.StorageUseCase
	intake  *IntakeService
	limiter *ratelimit.Limiter
	db      *database.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbCfg := &conf.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}
	db, err := database.New(dbCfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, models.AutoMigrate(db.DB))

	blob, err := data.NewDiskStore(t.TempDir(), 1<<20, logger.Nop())
	require.NoError(t, err)

	files := data.NewFileRepo(db)
	users := data.NewUserRepo(db)
	history := data.NewHistoryRepo(db)
	stats := data.NewStatsRepo(db)

	storage := biz.NewStorageUseCase(
		files, users, history, stats, blob, db,
		biz.StorageConfig{RetentionDays: 30},
		logger.Nop(),
	)
	statsUC := biz.NewStatsUseCase(files, users, stats, logger.Nop())
	userData := biz.NewUserDataUseCase(files, users, history, blob, db, logger.Nop())

	pool, err := workerpool.New(2, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	limiter := ratelimit.New(3, time.Minute)
	t.Cleanup(limiter.Stop)

	fileService := NewFileService(storage, statsUC, userData, pool, db, logger.Nop())
	intake := NewIntakeService(storage, limiter, IntakeConfig{
		MaxFileSize:     1 << 20,
		DownloadURLBase: "http://localhost:8000",
	}, logger.Nop())

	router := gin.New()
	fileService.RegisterRoutes(router)
	intake.RegisterRoutes(router)

	return &testEnv{
		router:  router,
		storage: storage,
		intake:  intake,
		limiter: limiter,
		db:      db,
	}
}

func (e *testEnv) upload(t *testing.T, sourceID, filename, content string, ownerID int64) *UploadResult {
	t.Helper()
	result, err := e.intake.HandleUpload(context.Background(), UploadEvent{
		SourceFileID: sourceID,
		Filename:     filename,
		OwnerID:      ownerID,
		Content:      strings.NewReader(content),
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postUpload(t *testing.T, sourceID, filename, content, ownerID string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if ownerID != "" {
		require.NoError(t, mw.WriteField("owner_id", ownerID))
	}
	if sourceID != "" {
		require.NoError(t, mw.WriteField("source_file_id", sourceID))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleUpload(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "report.pdf", "pdf bytes", 1001)

	assert.NotEmpty(t, result.FileID)
	assert.Equal(t, int64(9), result.Size)
	assert.Len(t, result.Checksum, 64)
	assert.Equal(t, "http://localhost:8000/download/"+result.FileID, result.DownloadURL)
}

func TestHandleUploadRateLimited(t *testing.T) {
	e := newTestEnv(t)

	e.upload(t, "src-1", "a.bin", "x", 1001)
	e.upload(t, "src-2", "b.bin", "x", 1001)
	e.upload(t, "src-3", "c.bin", "x", 1001)
	assert.Equal(t, 0, e.intake.Remaining(1001))

	_, err := e.intake.HandleUpload(context.Background(), UploadEvent{
		SourceFileID: "src-4",
		Filename:     "d.bin",
		OwnerID:      1001,
		Content:      strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, biz.ErrRateLimited)

	// another user is unaffected
	e.upload(t, "src-5", "e.bin", "x", 1002)
}

func TestHandleUploadDeclaredSizeFastFail(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.intake.HandleUpload(context.Background(), UploadEvent{
		SourceFileID: "src-1",
		Filename:     "huge.bin",
		DeclaredSize: 2 << 20,
		OwnerID:      1001,
		Content:      strings.NewReader("never read"),
	})
	assert.ErrorIs(t, err, biz.ErrFileTooLarge)
}

func TestUploadEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.postUpload(t, "src-1", "notes.txt", "hello world", "1001")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["size"])
	fileID := data["file_id"].(string)
	assert.Equal(t, "http://localhost:8000/download/"+fileID, data["download_url"])

	// the uploaded file is immediately downloadable
	dl := e.get(t, "/download/"+fileID)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "hello world", dl.Body.String())
}

func TestUploadEndpointValidation(t *testing.T) {
	e := newTestEnv(t)

	missingOwner := e.postUpload(t, "src-1", "a.bin", "x", "")
	assert.Equal(t, http.StatusBadRequest, missingOwner.Code)

	missingSource := e.postUpload(t, "", "a.bin", "x", "1001")
	assert.Equal(t, http.StatusBadRequest, missingSource.Code)

	missingFile := e.postUpload(t, "src-1", "", "", "1001")
	assert.Equal(t, http.StatusBadRequest, missingFile.Code)
}

func TestUploadEndpointRateLimited(t *testing.T) {
	e := newTestEnv(t)

	for i := 1; i <= 3; i++ {
		w := e.postUpload(t, fmt.Sprintf("src-%d", i), "a.bin", "x", "1001")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := e.postUpload(t, "src-4", "a.bin", "x", "1001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(apperrors.ErrUserRateLimited), body["code"])
}

func TestUploadEndpointDuplicate(t *testing.T) {
	e := newTestEnv(t)

	first := e.postUpload(t, "src-dup", "a.bin", "x", "1001")
	require.Equal(t, http.StatusOK, first.Code)

	second := e.postUpload(t, "src-dup", "b.bin", "y", "1002")
	assert.Equal(t, http.StatusConflict, second.Code)

	body := decodeBody(t, second)
	assert.Equal(t, float64(apperrors.ErrFileDuplicate), body["code"])
}

func TestDownloadEndpoint(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "notes.txt", "hello world", 1001)

	w := e.get(t, "/download/"+result.FileID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")
}

func TestDownloadInvalidID(t *testing.T) {
	e := newTestEnv(t)

	for _, id := range []string{"not-a-uuid", "12345", "123e4567e89b12d3a456426614174000"} {
		w := e.get(t, "/download/"+id)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, float64(apperrors.ErrFileInvalidID), body["code"])
	}
}

func TestDownloadUnknownID(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(t, "/download/00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(apperrors.ErrFileNotFound), body["code"])
}

func TestDownloadExpired(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "old.bin", "stale", 1001)
	err := e.db.Model(&models.FileRecord{}).
		Where("id = ?", result.FileID).
		Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error
	require.NoError(t, err)

	w := e.get(t, "/download/"+result.FileID)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(apperrors.ErrFileExpired), body["code"])
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
}

func TestStatisticsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "a.bin", "0123456789", 1001)
	e.get(t, "/download/"+result.FileID)

	w := e.get(t, "/statistics")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	storage := data["storage"].(map[string]interface{})
	downloads := data["downloads"].(map[string]interface{})

	assert.Equal(t, float64(1), storage["total_files"])
	assert.Equal(t, float64(10), storage["total_size_bytes"])
	assert.Equal(t, float64(1), downloads["total_downloads"])
	assert.Equal(t, float64(10), downloads["total_served_bytes"])
}

func TestAdminStatsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	e.upload(t, "src-1", "a.bin", "aaaa", 1001)

	w := e.get(t, "/admin/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["recent_files"], 1)
	tables := data["tables"].(map[string]interface{})
	assert.Equal(t, float64(1), tables["files"])
}

func TestCleanupEndpoint(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAdminDeleteFile(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "doomed.bin", "bytes", 1001)

	req := httptest.NewRequest(http.MethodDelete, "/admin/files/"+result.FileID, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	dl := e.get(t, "/download/"+result.FileID)
	assert.Equal(t, http.StatusNotFound, dl.Code)
}

func TestAdminDeleteExpiredFile(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "stale.bin", "bytes", 1001)
	err := e.db.Model(&models.FileRecord{}).
		Where("id = ?", result.FileID).
		Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error
	require.NoError(t, err)

	// flips the record to expired
	dl := e.get(t, "/download/"+result.FileID)
	require.Equal(t, http.StatusNotFound, dl.Code)

	req := httptest.NewRequest(http.MethodDelete, "/admin/files/"+result.FileID, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminDeleteFileUnknown(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/admin/files/00000000-0000-0000-0000-000000000000", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminExportUser(t *testing.T) {
	e := newTestEnv(t)

	e.upload(t, "src-1", "mine.bin", "bytes", 1001)

	w := e.get(t, "/admin/users/1001/export")
	assert.Equal(t, http.StatusOK, w.Code)

	missing := e.get(t, "/admin/users/9999/export")
	assert.Equal(t, http.StatusNotFound, missing.Code)

	bad := e.get(t, "/admin/users/abc/export")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestAdminEraseUser(t *testing.T) {
	e := newTestEnv(t)

	result := e.upload(t, "src-1", "mine.bin", "bytes", 1001)

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/1001", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	dl := e.get(t, "/download/"+result.FileID)
	assert.Equal(t, http.StatusNotFound, dl.Code)

	export := e.get(t, "/admin/users/1001/export")
	assert.Equal(t, http.StatusNotFound, export.Code)
}

func TestRootEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(t, "/")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "filedepot", data["service"])
}
