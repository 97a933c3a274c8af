package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"telegram-chat-viewer/internal/adapters/exporter"
	"telegram-chat-viewer/internal/adapters/parser"
	"telegram-chat-viewer/internal/core/services"
	"telegram-chat-viewer/internal/domain"
	applog "telegram-chat-viewer/internal/log"
	"telegram-chat-viewer/internal/pkg/config"
	"telegram-chat-viewer/internal/pkg/hardware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("viewer run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		filePath     string
		metadataOnly bool
		stream       bool
		chunkSize    int
		searchTerm   string
		exportPath   string
		logLevel     string
	)
	flag.StringVar(&filePath, "file", "", "Path to the Telegram chat export JSON file")
	flag.BoolVar(&metadataOnly, "metadata", false, "Analyze the file without loading messages")
	flag.BoolVar(&stream, "stream", false, "Force streaming load regardless of file size")
	flag.IntVar(&chunkSize, "chunk", 0, "Chunk size for streaming load (0 = from hardware profile)")
	flag.StringVar(&searchTerm, "search", "", "Print only messages matching the term")
	flag.StringVar(&exportPath, "export", "", "Export messages to an XLSX file instead of the console")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	if filePath == "" {
		if args := flag.Args(); len(args) == 1 {
			filePath = args[0]
		} else {
			return fmt.Errorf("путь к файлу обязателен: viewer -file <export.json>")
		}
	}

	logger, closeLog, err := applog.Setup(config.Logging{
		Level:  logLevel,
		Format: applog.DefaultFormat(),
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	profile := hardware.Detect(logger)
	sequential := parser.NewSequentialIngestor(
		parser.WithSequentialLogger(logger),
		parser.WithReadBufferSize(profile.Settings.IOBufferSize),
	)
	ingestor := parser.NewParallelIngestor(profile.Settings,
		parser.WithParallelLogger(logger),
		parser.WithFallback(sequential),
	)

	meta, err := ingestor.ChatMetadata(filePath)
	if err != nil {
		return err
	}

	if metadataOnly {
		printMetadata(meta)
		return nil
	}

	loadCfg := profile.RecommendLoadingConfig(meta.FileSizeMB, meta.TotalMessages)
	if chunkSize > 0 {
		loadCfg.ChunkSize = chunkSize
	}

	var messages []domain.Message
	var chatName string
	if stream || loadCfg.Strategy == hardware.StrategyStreaming {
		load, err := ingestor.LoadStreaming(ctx, filePath, loadCfg.ChunkSize)
		if err != nil {
			return err
		}
		chatName = load.ChatName
		for chunk := range load.Chunks {
			messages = append(messages, chunk...)
		}
		if err := load.Err(); err != nil {
			return err
		}
	} else {
		messages, chatName, err = ingestor.LoadAll(ctx, filePath)
		if err != nil {
			return err
		}
	}

	if searchTerm != "" {
		found := services.SearchMessages(messages, searchTerm)
		fmt.Printf("Found %d of %d messages matching %q\n", len(found), len(messages), searchTerm)
		messages = found
	}

	var exp = exporter.NewConsoleExporter()
	if exportPath != "" {
		exp = exporter.NewExcelExporter(exportPath)
	}
	if err := exp.Export(chatName, messages); err != nil {
		return err
	}
	if exportPath != "" {
		fmt.Printf("Exported %d messages to %s\n", len(messages), exportPath)
	}
	return nil
}

// printMetadata выводит сводку по файлу без загрузки сообщений.
func printMetadata(meta *domain.ChatMetadata) {
	fmt.Printf("Chat:              %s\n", meta.ChatName)
	fmt.Printf("Messages:          %d\n", meta.TotalMessages)
	fmt.Printf("File size:         %.1f MB\n", meta.FileSizeMB)
	fmt.Printf("Estimated memory:  %.1f MB\n", meta.EstimatedMemoryMB)
	if !meta.FirstMessageDate.IsZero() {
		fmt.Printf("First message:     %s\n", meta.FirstMessageDate.Format("2006-01-02 15:04:05"))
		fmt.Printf("Last message:      %s\n", meta.LastMessageDate.Format("2006-01-02 15:04:05"))
	}
}
