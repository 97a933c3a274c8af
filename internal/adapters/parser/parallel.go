package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/semaphore"

	"telegram-chat-viewer/internal/adapters/source"
	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/pkg/hardware"
	"telegram-chat-viewer/internal/ports"
)

// ErrTooFewSegments сигнализирует, что разбиение не дало достаточно
// независимых единиц работы для параллельного пути.
var ErrTooFewSegments = errors.New("недостаточно сегментов для параллельного разбора")

// defaultMinParallelFileSizeMB - минимальный размер файла, при котором
// параллельный разбор окупается.
const defaultMinParallelFileSizeMB = 10.0

// minParallelWorkers - минимальное рекомендованное число воркеров,
// при котором параллельный путь имеет смысл.
const minParallelWorkers = 2

// ParallelIngestor разбивает массив сообщений на сегменты, декодирует их
// одновременно ограниченным пулом воркеров и детерминированно собирает
// результат в порядке документа. Итоговый порядок сообщений байт в байт
// совпадает с результатом последовательного загрузчика независимо от
// порядка завершения воркеров.
type ParallelIngestor struct {
	log           *slog.Logger
	dec           ports.RecordDecoder
	scanner       *StructuralScanner
	fallback      *SequentialIngestor
	settings      hardware.OptimalSettings
	minFileSizeMB float64
}

// ParallelOption - функциональная опция для настройки ParallelIngestor.
type ParallelOption func(*ParallelIngestor)

// WithParallelLogger устанавливает логгер загрузчика.
func WithParallelLogger(l *slog.Logger) ParallelOption {
	return func(p *ParallelIngestor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMinParallelFileSizeMB устанавливает порог размера файла,
// ниже которого выбирается последовательный путь.
func WithMinParallelFileSizeMB(mb float64) ParallelOption {
	return func(p *ParallelIngestor) {
		if mb >= 0 {
			p.minFileSizeMB = mb
		}
	}
}

// WithFallback устанавливает последовательный загрузчик отката.
func WithFallback(f *SequentialIngestor) ParallelOption {
	return func(p *ParallelIngestor) {
		if f != nil {
			p.fallback = f
		}
	}
}

// NewParallelIngestor создает новый экземпляр ParallelIngestor,
// настроенный рекомендациями профиля оборудования.
func NewParallelIngestor(settings hardware.OptimalSettings, opts ...ParallelOption) *ParallelIngestor {
	p := &ParallelIngestor{
		log:           slog.Default(),
		dec:           NewRecordDecoder(),
		scanner:       NewStructuralScanner(),
		settings:      settings,
		minFileSizeMB: defaultMinParallelFileSizeMB,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fallback == nil {
		p.fallback = NewSequentialIngestor(WithSequentialLogger(p.log))
	}
	return p
}

// LoadAll возвращает все сообщения файла в порядке документа и имя чата.
// Решение о пути принимается по размеру файла и профилю оборудования;
// любой сбой параллельного пути приводит к полному откату на
// последовательный загрузчик, частичные результаты отбрасываются.
func (p *ParallelIngestor) LoadAll(ctx context.Context, path string) ([]domain.Message, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось получить сведения о файле %s: %w", path, err)
	}
	fileSizeMB := float64(info.Size()) / (1024.0 * 1024.0)

	if !p.settings.UseParallelParsing || p.settings.MaxParallelWorkers < minParallelWorkers || fileSizeMB < p.minFileSizeMB {
		p.log.Info("Параллельный путь не окупается, используется последовательный загрузчик",
			"file_size_mb", fileSizeMB,
			"workers", p.settings.MaxParallelWorkers,
		)
		return p.fallback.LoadAll(ctx, path)
	}

	messages, chatName, err := p.loadParallel(ctx, path)
	if err != nil {
		// Отмененный контекст откатом не лечится: последовательный путь
		// упадет на той же отмене.
		if ctx.Err() != nil {
			return nil, "", err
		}
		p.log.Warn("Сбой параллельного разбора, откат к последовательному загрузчику", "error", err)
		return p.fallback.LoadAll(ctx, path)
	}
	return messages, chatName, nil
}

// segmentResult - вклад одного воркера, помеченный индексом сегмента.
type segmentResult struct {
	index    int
	messages []domain.Message
	err      error
}

// loadParallel выполняет параллельный путь: разбиение, пул воркеров,
// барьер и сборка по индексам сегментов.
func (p *ParallelIngestor) loadParallel(ctx context.Context, path string) ([]domain.Message, string, error) {
	start := time.Now()

	data, err := source.NewFileSource(path).Fetch()
	if err != nil {
		return nil, "", err
	}

	chatName, elems, err := p.scanner.CollectRaw(data)
	if err != nil {
		return nil, "", err
	}

	workers := p.settings.MaxParallelWorkers
	segments := p.scanner.Partition(len(elems), workers)
	if len(segments) < workers {
		return nil, "", fmt.Errorf("%w: сегментов %d при %d воркерах", ErrTooFewSegments, len(segments), workers)
	}

	p.log.Info("Начат параллельный разбор",
		"segments", len(segments),
		"workers", workers,
		"message_estimate", len(elems),
	)

	// Воркеры не делят изменяемое состояние: каждый монопольно владеет
	// своим диапазоном записей, результаты собираются через канал и
	// упорядочиваются только после барьера.
	sem := semaphore.NewWeighted(int64(workers))
	results := make(chan segmentResult, len(segments))
	var wg sync.WaitGroup

	for i, seg := range segments {
		wg.Add(1)
		go func(index int, seg FileSegment) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- segmentResult{index: index, err: err}
				return
			}
			defer sem.Release(1)
			results <- segmentResult{
				index:    index,
				messages: p.decodeSegment(elems[seg.Start:seg.End], index),
			}
		}(i, seg)
	}

	wg.Wait()
	close(results)

	collected := make([]segmentResult, 0, len(segments))
	failed := 0
	for res := range results {
		if res.err != nil {
			// Отмена контекста - не локальный сбой сегмента, а прерывание
			// всей загрузки: результат без целых сегментов отдавать нельзя.
			if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
				return nil, "", fmt.Errorf("параллельный разбор прерван: %w", res.err)
			}
			// Пустой вклад сегмента не ломает сборку, но считается сбоем.
			p.log.Warn("Сегмент завершился с ошибкой", "segment", res.index, "error", res.err)
			failed++
		}
		collected = append(collected, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("параллельный разбор прерван: %w", err)
	}
	if failed > len(segments)/2 {
		return nil, "", fmt.Errorf("слишком много сегментов завершилось с ошибкой: %d из %d", failed, len(segments))
	}

	// Сборка по индексу сегмента, а не по порядку завершения:
	// порядок завершения под конкуренцией недетерминирован.
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	var messages []domain.Message
	for _, res := range collected {
		messages = append(messages, res.messages...)
	}

	elapsed := time.Since(start)
	p.log.Info("Параллельный разбор завершен",
		"message_count", len(messages),
		"segments", len(segments),
		"elapsed", elapsed.String(),
	)
	return messages, chatName, nil
}

// decodeSegment декодирует записи одного сегмента с той же терпимостью
// к непригодным записям, что и последовательный путь.
func (p *ParallelIngestor) decodeSegment(raws []jx.Raw, index int) []domain.Message {
	messages := make([]domain.Message, 0, len(raws))
	for i, raw := range raws {
		msg, err := p.dec.DecodeMessage(raw)
		if err != nil {
			p.log.Warn("Пропущена непригодная запись сообщения",
				"segment", index,
				"offset", i,
				"error", err,
			)
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// LoadStreaming делегирует последовательному загрузчику: потоковая
// выдача порций в порядке документа по своей природе однопроходна.
func (p *ParallelIngestor) LoadStreaming(ctx context.Context, path string, chunkSize int) (*domain.StreamingLoad, error) {
	return p.fallback.LoadStreaming(ctx, path, chunkSize)
}

// ChatMetadata делегирует структурный проход последовательному загрузчику.
func (p *ParallelIngestor) ChatMetadata(path string) (*domain.ChatMetadata, error) {
	return p.fallback.ChatMetadata(path)
}
