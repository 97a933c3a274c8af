package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"telegram-chat-viewer/internal/adapters/parser"
	"telegram-chat-viewer/internal/cache"
	applog "telegram-chat-viewer/internal/log"
	"telegram-chat-viewer/internal/pkg/config"
	"telegram-chat-viewer/internal/pkg/hardware"
	"telegram-chat-viewer/internal/server"
	"telegram-chat-viewer/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger, closeLog, err := applog.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Профиль оборудования вычисляется один раз при старте
	profile := hardware.Detect(logger)
	settings := profile.Settings
	if cfg.Ingestion.WorkerOverride > 0 {
		settings.MaxParallelWorkers = cfg.Ingestion.WorkerOverride
	}

	// 5. Инициализация зависимостей
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	taskStore := server.NewTaskStore()
	cacheStore := cache.NewCacheStore()

	sequential := parser.NewSequentialIngestor(
		parser.WithSequentialLogger(logger),
		parser.WithReadBufferSize(settings.IOBufferSize),
	)
	ingestor := parser.NewParallelIngestor(settings,
		parser.WithParallelLogger(logger),
		parser.WithFallback(sequential),
		parser.WithMinParallelFileSizeMB(float64(cfg.Ingestion.MinParallelFileSizeMB)),
	)
	loader := usecase.NewLoadChatUseCase(cfg, ingestor, cacheStore, logger)

	// 6. Создание HTTP-сервера
	srv, err := server.New(cfg, loader, taskStore, cacheStore)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	srv.StartCleanup(appCtx)

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address(), "tier", profile.Tier.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")

	// Сначала отменяем контекст приложения, чтобы остановить фоновые тикеры
	appCancel()

	// Затем останавливаем HTTP-сервер
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("HTTP server stopped")

	slog.Info("Application exited gracefully")
	return nil
}
