package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-faster/jx"

	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/ports"
)

// DefaultChunkSize - размер порции потоковой выдачи по умолчанию.
const DefaultChunkSize = 1000

// SequentialIngestor загружает файл экспорта одним прямым проходом:
// структурный ридер находит массив сообщений, а декодер записей
// превращает каждый элемент в сообщение в порядке документа.
type SequentialIngestor struct {
	log     *slog.Logger
	dec     ports.RecordDecoder
	scanner *StructuralScanner
	bufSize int
}

// SequentialOption - функциональная опция для настройки SequentialIngestor.
type SequentialOption func(*SequentialIngestor)

// WithSequentialLogger устанавливает логгер загрузчика.
func WithSequentialLogger(l *slog.Logger) SequentialOption {
	return func(s *SequentialIngestor) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReadBufferSize устанавливает размер буфера чтения токенного ридера.
func WithReadBufferSize(n int) SequentialOption {
	return func(s *SequentialIngestor) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// NewSequentialIngestor создает новый экземпляр SequentialIngestor.
func NewSequentialIngestor(opts ...SequentialOption) *SequentialIngestor {
	s := &SequentialIngestor{
		log:     slog.Default(),
		dec:     NewRecordDecoder(),
		scanner: NewStructuralScanner(),
		bufSize: defaultScanBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAll возвращает все сообщения файла в порядке документа и имя чата.
// Порядок документа - инвариант корректности: отметки времени не обязаны
// быть монотонными, и потребители полагаются на позиционную стабильность.
func (s *SequentialIngestor) LoadAll(ctx context.Context, path string) ([]domain.Message, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось открыть файл %s: %w", path, err)
	}
	defer f.Close()

	var messages []domain.Message
	chatName, err := s.walk(ctx, f, func(msg domain.Message) error {
		messages = append(messages, msg)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.log.Info("Файл экспорта загружен", "path", path, "chat", chatName, "message_count", len(messages))
	return messages, chatName, nil
}

// LoadStreaming возвращает ленивую последовательность порций сообщений.
// Первый проход - структурный: имя чата и оценка общего числа сообщений.
// Второй проход декодирует записи и отдает порции размером не более
// chunkSize через неблокирующий для производителя канал: передача порции -
// точка кооперативной уступки, на которой потребитель может отменить
// чтение через контекст.
func (s *SequentialIngestor) LoadStreaming(ctx context.Context, path string, chunkSize int) (*domain.StreamingLoad, error) {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл %s: %w", path, err)
	}
	scan, err := s.scanner.Scan(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	s.log.Info("Начат потоковый проход",
		"path", path,
		"chat", scan.ChatName,
		"total_messages", scan.MessageCount,
		"chunk_size", chunkSize,
	)

	chunks := make(chan []domain.Message)
	errc := make(chan error, 1)

	go func() {
		errc <- s.streamChunks(ctx, path, chunkSize, chunks)
		close(chunks)
	}()

	return domain.NewStreamingLoad(scan.ChatName, scan.MessageCount, chunks, errc), nil
}

// streamChunks выполняет декодирующий проход и отправляет порции в канал.
func (s *SequentialIngestor) streamChunks(ctx context.Context, path string, chunkSize int, chunks chan<- []domain.Message) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("не удалось открыть файл %s: %w", path, err)
	}
	defer f.Close()

	emit := func(chunk []domain.Message) error {
		select {
		case chunks <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	chunk := make([]domain.Message, 0, chunkSize)
	_, err = s.walk(ctx, f, func(msg domain.Message) error {
		chunk = append(chunk, msg)
		if len(chunk) >= chunkSize {
			if err := emit(chunk); err != nil {
				return err
			}
			chunk = make([]domain.Message, 0, chunkSize)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Последняя порция может быть короче chunkSize.
	if len(chunk) > 0 {
		return emit(chunk)
	}
	return nil
}

// ChatMetadata выполняет только структурный проход: полный декодер
// записей не задействуется.
func (s *SequentialIngestor) ChatMetadata(path string) (*domain.ChatMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить сведения о файле %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл %s: %w", path, err)
	}
	defer f.Close()

	scan, err := s.scanner.Scan(f)
	if err != nil {
		return nil, err
	}

	meta := &domain.ChatMetadata{
		FilePath:      path,
		ChatName:      scan.ChatName,
		TotalMessages: scan.MessageCount,
		FileSizeBytes: info.Size(),
		FileSizeMB:    float64(info.Size()) / (1024.0 * 1024.0),
		// Грубая оценка: около 2 КБ на сообщение в памяти.
		EstimatedMemoryMB: float64(scan.MessageCount) * 2.0 / 1024.0,
	}
	if scan.FirstUnix != 0 {
		meta.FirstMessageDate = time.Unix(scan.FirstUnix, 0).UTC()
		meta.LastMessageDate = time.Unix(scan.LastUnix, 0).UTC()
	}

	s.log.Info("Анализ метаданных завершен",
		"path", path,
		"message_count", meta.TotalMessages,
		"file_size_mb", meta.FileSizeMB,
	)
	return meta, nil
}

// walk проходит документ, вызывая onMessage для каждой декодированной
// записи в порядке документа. Непригодная запись пишется в журнал и
// пропускается; это никогда не прерывает проход целиком.
func (s *SequentialIngestor) walk(ctx context.Context, r io.Reader, onMessage func(domain.Message) error) (string, error) {
	dec := jx.Decode(r, s.bufSize)
	chatName := DefaultChatName
	index := 0

	decodeElems := func(dec *jx.Decoder) error {
		return dec.Arr(func(dec *jx.Decoder) error {
			index++
			if index%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if dec.Next() != jx.Object {
				return dec.Skip()
			}
			raw, err := dec.Raw()
			if err != nil {
				return err
			}
			msg, derr := s.dec.DecodeMessage(raw)
			if derr != nil {
				s.log.Warn("Пропущена непригодная запись сообщения", "index", index-1, "error", derr)
				return nil
			}
			return onMessage(msg)
		})
	}

	switch dec.Next() {
	case jx.Object:
		sawMessages := false
		nameSet := false
		err := dec.ObjBytes(func(dec *jx.Decoder, key []byte) error {
			switch string(key) {
			case "name":
				if !nameSet && dec.Next() == jx.String {
					name, err := dec.Str()
					if err != nil {
						return err
					}
					chatName = name
					nameSet = true
					return nil
				}
				return dec.Skip()
			case "messages":
				if dec.Next() != jx.Array {
					return fmt.Errorf("%w: свойство messages не является массивом", ErrStructural)
				}
				sawMessages = true
				return decodeElems(dec)
			default:
				return dec.Skip()
			}
		})
		if err != nil {
			return chatName, classifyWalkError(err)
		}
		if !sawMessages {
			return chatName, fmt.Errorf("%w: корневой объект не содержит массива messages", ErrStructural)
		}
	case jx.Array:
		if err := decodeElems(dec); err != nil {
			return chatName, classifyWalkError(err)
		}
	default:
		return chatName, fmt.Errorf("%w: ожидался объект или массив в корне документа", ErrStructural)
	}

	return chatName, nil
}

// classifyWalkError отделяет отмену контекста от структурных сбоев.
func classifyWalkError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return wrapStructural(err)
}
