// Package usecase содержит прикладные сценарии серверного слоя.
package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"telegram-chat-viewer/internal/cache"
	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/pkg/config"
	"telegram-chat-viewer/internal/ports"
)

// LoadChatUseCase инкапсулирует бизнес-логику загрузки файла экспорта чата.
// Результат кэшируется по хешу содержимого: повторная загрузка того же
// файла не перечитывает его с диска.
type LoadChatUseCase struct {
	cfg        *config.Config
	ingestor   ports.Ingestor
	cacheStore *cache.CacheStore
	log        *slog.Logger
}

// NewLoadChatUseCase создает новый экземпляр LoadChatUseCase.
func NewLoadChatUseCase(
	cfg *config.Config,
	ingestor ports.Ingestor,
	cacheStore *cache.CacheStore,
	log *slog.Logger,
) *LoadChatUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &LoadChatUseCase{
		cfg:        cfg,
		ingestor:   ingestor,
		cacheStore: cacheStore,
		log:        log,
	}
}

// LoadChat загружает файл экспорта целиком и возвращает имя чата с
// сообщениями в порядке документа.
func (uc *LoadChatUseCase) LoadChat(ctx context.Context, filePath string) (domain.LoadResult, error) {
	fileHash, err := cache.CalculateFileHash(filePath)
	if err != nil {
		return domain.LoadResult{}, fmt.Errorf("не удалось вычислить хеш файла %s: %w", filePath, err)
	}

	if cachedItem, found := uc.cacheStore.Get(fileHash); found {
		uc.log.Info("Попадание в кеш для файла", "hash", fileHash)
		return cachedItem.Data, nil
	}

	uc.log.Info("Загрузка файла", "path", filePath)
	messages, chatName, err := uc.ingestor.LoadAll(ctx, filePath)
	if err != nil {
		return domain.LoadResult{}, fmt.Errorf("не удалось загрузить файл %s: %w", filePath, err)
	}

	result := domain.LoadResult{ChatName: chatName, Messages: messages}

	ttl := uc.cfg.CacheTTL()
	uc.cacheStore.Put(fileHash, result, ttl)
	uc.log.Info("Результат кеширован", "hash", fileHash, "ttl", ttl.String())

	uc.log.Info("Загрузка успешно завершена", "chat", chatName, "message_count", len(messages))
	return result, nil
}

// ChatMetadata возвращает сводку по файлу экспорта без полной загрузки.
func (uc *LoadChatUseCase) ChatMetadata(filePath string) (*domain.ChatMetadata, error) {
	return uc.ingestor.ChatMetadata(filePath)
}
