package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"telegram-chat-viewer/internal/cache"
	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/pkg/config"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// taskTTL - срок хранения записи о задаче.
const taskTTL = 24 * time.Hour

// ChatLoader определяет интерфейс для варианта использования, который загружает чаты.
type ChatLoader interface {
	LoadChat(ctx context.Context, filePath string) (domain.LoadResult, error)
	ChatMetadata(filePath string) (*domain.ChatMetadata, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	loader     ChatLoader
}

// New создает новый экземпляр Server
func New(cfg *config.Config, loader ChatLoader, taskStore *TaskStore, cacheStore *cache.CacheStore) (*Server, error) {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Конечная точка для запуска новой задачи загрузки
		r.Post("/load", func(w http.ResponseWriter, r *http.Request) {
			maxUpload := int64(cfg.Server.MaxUploadSizeMB) << 20
			if err := r.ParseMultipartForm(maxUpload); err != nil {
				http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
				return
			}

			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
				return
			}
			defer file.Close()

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Создание временного файла для хранения загруженных данных
			tempFilePath := filepath.Join(os.TempDir(), fmt.Sprintf("chat_%s.json", taskID))

			out, err := os.Create(tempFilePath)
			if err != nil {
				http.Error(w, "Не удалось создать временный файл", http.StatusInternalServerError)
				return
			}
			defer out.Close()

			if _, err := io.Copy(out, file); err != nil {
				http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
				return
			}

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, taskTTL)

			// Запуск загрузки в горутине
			go func() {
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)
				defer os.Remove(tempFilePath)

				// Контекст задачи с таймаутом из конфигурации.
				taskCtx := context.Background()
				if cfg.Processing.TaskTimeoutSeconds > 0 {
					var cancel context.CancelFunc
					taskCtx, cancel = context.WithTimeout(context.Background(), cfg.TaskTimeout())
					defer cancel()
				}

				result, err := loader.LoadChat(taskCtx, tempFilePath)
				if err != nil {
					taskStore.UpdateTaskError(taskID, err.Error())
					slog.Error("Задача загрузки завершилась с ошибкой", "task_id", taskID, "error", err)
					return
				}

				taskStore.UpdateTaskResult(taskID, result)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для запуска новой задачи загрузки по хешу
		r.Post("/load-by-hash", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Hash string `json:"hash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
				return
			}

			if req.Hash == "" {
				http.Error(w, "Требуется хеш", http.StatusBadRequest)
				return
			}

			taskID := uuid.NewString()
			taskStore.CreateTask(taskID, taskTTL)

			go func() {
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				if cachedItem, found := cacheStore.Get(req.Hash); found {
					taskStore.UpdateTaskResult(taskID, cachedItem.Data)
					slog.Info("Попадание в кеш для хеша", "hash", req.Hash, "task_id", taskID)
					return
				}

				// Файл по хешу не хранится; промах кеша означает сбой задачи.
				taskStore.UpdateTaskError(taskID, "Файл не найден в кеше для данного хеша")
				slog.Info("Промах кеша для хеша", "hash", req.Hash, "task_id", taskID)
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для синхронного анализа метаданных файла
		r.Post("/metadata", func(w http.ResponseWriter, r *http.Request) {
			maxUpload := int64(cfg.Server.MaxUploadSizeMB) << 20
			if err := r.ParseMultipartForm(maxUpload); err != nil {
				http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
				return
			}

			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
				return
			}
			defer file.Close()

			tempFilePath := filepath.Join(os.TempDir(), fmt.Sprintf("meta_%s.json", uuid.NewString()))
			out, err := os.Create(tempFilePath)
			if err != nil {
				http.Error(w, "Не удалось создать временный файл", http.StatusInternalServerError)
				return
			}
			defer os.Remove(tempFilePath)

			if _, err := io.Copy(out, file); err != nil {
				out.Close()
				http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
				return
			}
			out.Close()

			meta, err := loader.ChatMetadata(tempFilePath)
			if err != nil {
				http.Error(w, "Не удалось проанализировать файл", http.StatusUnprocessableEntity)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"chat_name":           meta.ChatName,
				"total_messages":      meta.TotalMessages,
				"file_size_mb":        meta.FileSizeMB,
				"estimated_memory_mb": meta.EstimatedMemoryMB,
				"first_message_date":  meta.FirstMessageDate,
				"last_message_date":   meta.LastMessageDate,
			})
		})

		// Конечная точка для проверки статуса задачи
		r.Get("/tasks/{taskID}", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"task_id":       task.ID,
				"status":        task.Status,
				"error_message": task.ErrorMessage,
			})
		})

		// Конечная точка для получения результата задачи с пагинацией
		r.Get("/tasks/{taskID}/result", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			if task.Status != TaskStatusCompleted {
				http.Error(w, "Задача не завершена", http.StatusBadRequest)
				return
			}

			page := parseQueryInt(r, "page", 1)
			pageSize := parseQueryInt(r, "page_size", 50)
			if page < 1 {
				page = 1
			}
			if pageSize < 1 || pageSize > 1000 {
				pageSize = 50
			}

			messages := task.Result.Messages
			startIndex := (page - 1) * pageSize
			endIndex := startIndex + pageSize
			if startIndex >= len(messages) {
				startIndex = len(messages)
				endIndex = len(messages)
			}
			if endIndex > len(messages) {
				endIndex = len(messages)
			}

			totalItems := len(messages)
			totalPages := (totalItems + pageSize - 1) / pageSize

			response := struct {
				ChatName   string `json:"chat_name"`
				Pagination struct {
					CurrentPage int `json:"current_page"`
					PageSize    int `json:"page_size"`
					TotalItems  int `json:"total_items"`
					TotalPages  int `json:"total_pages"`
				} `json:"pagination"`
				Data []domain.Message `json:"data"`
			}{
				ChatName: task.Result.ChatName,
				Data:     messages[startIndex:endIndex],
			}
			response.Pagination.CurrentPage = page
			response.Pagination.PageSize = pageSize
			response.Pagination.TotalItems = totalItems
			response.Pagination.TotalPages = totalPages

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		})
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}

	s := &Server{
		HTTPServer: httpServer,
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		loader:     loader,
	}

	return s, nil
}

// StartCleanup запускает тикеры очистки просроченных задач и записей кеша.
// Остановка управляется переданным контекстом.
func (s *Server) StartCleanup(ctx context.Context) {
	s.taskStore.StartCleanupTicker(ctx, config.DefaultCleanupInterval)
	s.cacheStore.StartCleanupTicker(ctx, config.DefaultCleanupInterval)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}

// parseQueryInt читает целочисленный параметр запроса с значением по умолчанию.
func parseQueryInt(r *http.Request, key string, def int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}
