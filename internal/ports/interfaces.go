package ports

import (
	"context"

	"telegram-chat-viewer/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных чата.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// RecordDecoder определяет интерфейс декодирования одной записи сообщения.
type RecordDecoder interface {
	// DecodeMessage преобразует один JSON-объект в сообщение.
	// Ошибка означает непригодную запись; пакетный вызов пропускает ее.
	DecodeMessage(raw []byte) (domain.Message, error)
}

// Ingestor определяет интерфейс загрузки файла экспорта чата.
type Ingestor interface {
	// LoadAll возвращает все сообщения в порядке документа и имя чата.
	LoadAll(ctx context.Context, path string) ([]domain.Message, string, error)
	// LoadStreaming возвращает ленивую последовательность порций сообщений.
	LoadStreaming(ctx context.Context, path string, chunkSize int) (*domain.StreamingLoad, error)
	// ChatMetadata выполняет структурный проход без полного декодирования записей.
	ChatMetadata(path string) (*domain.ChatMetadata, error)
}

// Exporter определяет интерфейс для вывода загруженного чата.
type Exporter interface {
	// Export принимает имя чата и упорядоченный список сообщений.
	Export(chatName string, messages []domain.Message) error
}
