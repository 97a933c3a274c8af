package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-viewer/internal/cache"
	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/pkg/config"
)

// stubLoader подменяет сценарий загрузки в тестах маршрутов.
type stubLoader struct {
	result domain.LoadResult
	meta   *domain.ChatMetadata
	err    error
}

func (s *stubLoader) LoadChat(ctx context.Context, filePath string) (domain.LoadResult, error) {
	if s.err != nil {
		return domain.LoadResult{}, s.err
	}
	return s.result, nil
}

func (s *stubLoader) ChatMetadata(filePath string) (*domain.ChatMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.meta, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			Host:                   "127.0.0.1",
			Port:                   8080,
			ShutdownTimeoutSeconds: 5,
			MaxUploadSizeMB:        10,
		},
		Processing: config.Processing{TaskTimeoutSeconds: 30, CacheTTLMinutes: 60},
	}
}

func newTestServer(t *testing.T, loader ChatLoader) *Server {
	t.Helper()
	srv, err := New(testConfig(), loader, NewTaskStore(), cache.NewCacheStore())
	require.NoError(t, err)
	return srv
}

func multipartBody(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "export.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubLoader{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.HTTPServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestLoadEndpoint(t *testing.T) {
	t.Run("загрузка файла создает задачу", func(t *testing.T) {
		loader := &stubLoader{result: domain.LoadResult{
			ChatName: "чат",
			Messages: []domain.Message{{ID: 1}, {ID: 2}},
		}}
		srv := newTestServer(t, loader)

		body, contentType := multipartBody(t, `{"name": "чат", "messages": []}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/load", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		taskID := resp["task_id"]
		require.NotEmpty(t, taskID)

		// Задача выполняется асинхронно; ждем завершения.
		require.Eventually(t, func() bool {
			task, err := srv.taskStore.GetTask(taskID)
			return err == nil && task.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("запрос без файла отклоняется", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/load", bytes.NewBufferString("не форма"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("сбой загрузки переводит задачу в failed", func(t *testing.T) {
		loader := &stubLoader{err: fmt.Errorf("непригодный файл")}
		srv := newTestServer(t, loader)

		body, contentType := multipartBody(t, `мусор`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/load", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		require.Eventually(t, func() bool {
			task, err := srv.taskStore.GetTask(resp["task_id"])
			return err == nil && task.Status == TaskStatusFailed
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestTaskEndpoints(t *testing.T) {
	t.Run("статус несуществующей задачи - 404", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/нет-такой", nil)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("результат незавершенной задачи - 400", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})
		srv.taskStore.CreateTask("pending-task", time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/pending-task/result", nil)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("пагинация результата", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})

		messages := make([]domain.Message, 120)
		for i := range messages {
			messages[i] = domain.Message{ID: i + 1}
		}
		srv.taskStore.CreateTask("done-task", time.Hour)
		require.NoError(t, srv.taskStore.UpdateTaskResult("done-task", domain.LoadResult{
			ChatName: "чат",
			Messages: messages,
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done-task/result?page=2&page_size=50", nil)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			ChatName   string `json:"chat_name"`
			Pagination struct {
				CurrentPage int `json:"current_page"`
				TotalItems  int `json:"total_items"`
				TotalPages  int `json:"total_pages"`
			} `json:"pagination"`
			Data []domain.Message `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "чат", resp.ChatName)
		assert.Equal(t, 2, resp.Pagination.CurrentPage)
		assert.Equal(t, 120, resp.Pagination.TotalItems)
		assert.Equal(t, 3, resp.Pagination.TotalPages)
		require.Len(t, resp.Data, 50)
		assert.Equal(t, 51, resp.Data[0].ID)
	})

	t.Run("страница за пределами результата пуста", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})
		srv.taskStore.CreateTask("done-task", time.Hour)
		require.NoError(t, srv.taskStore.UpdateTaskResult("done-task", domain.LoadResult{
			Messages: []domain.Message{{ID: 1}},
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done-task/result?page=99", nil)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data []domain.Message `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Data)
	})
}

func TestLoadByHashEndpoint(t *testing.T) {
	t.Run("попадание в кеш завершает задачу без загрузки", func(t *testing.T) {
		cacheStore := cache.NewCacheStore()
		cached := domain.LoadResult{ChatName: "кешированный", Messages: []domain.Message{{ID: 7}}}
		cacheStore.Put("known-hash", cached, time.Hour)

		srv, err := New(testConfig(), &stubLoader{}, NewTaskStore(), cacheStore)
		require.NoError(t, err)

		body := bytes.NewBufferString(`{"hash": "known-hash"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/load-by-hash", body)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		require.Eventually(t, func() bool {
			task, err := srv.taskStore.GetTask(resp["task_id"])
			return err == nil && task.Status == TaskStatusCompleted && task.Result.ChatName == "кешированный"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("промах кеша дает failed", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})

		body := bytes.NewBufferString(`{"hash": "unknown"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/load-by-hash", body)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		require.Eventually(t, func() bool {
			task, err := srv.taskStore.GetTask(resp["task_id"])
			return err == nil && task.Status == TaskStatusFailed
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("пустой хеш отклоняется", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{})

		body := bytes.NewBufferString(`{"hash": ""}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/load-by-hash", body)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetadataEndpoint(t *testing.T) {
	t.Run("синхронный анализ метаданных", func(t *testing.T) {
		loader := &stubLoader{meta: &domain.ChatMetadata{
			ChatName:      "чат",
			TotalMessages: 1000,
			FileSizeMB:    12.5,
		}}
		srv := newTestServer(t, loader)

		body, contentType := multipartBody(t, `{"name": "чат", "messages": []}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/metadata", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "чат", resp["chat_name"])
		assert.Equal(t, float64(1000), resp["total_messages"])
	})

	t.Run("непригодный файл - 422", func(t *testing.T) {
		srv := newTestServer(t, &stubLoader{err: fmt.Errorf("структурная ошибка")})

		body, contentType := multipartBody(t, `мусор`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/metadata", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
