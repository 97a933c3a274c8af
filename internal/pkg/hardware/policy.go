package hardware

// Strategy - рекомендуемая стратегия загрузки файла экспорта.
type Strategy int

const (
	// StrategyLoadAll - файл целиком одним вызовом.
	StrategyLoadAll Strategy = iota
	// StrategyProgressive - порциями с постепенным показом.
	StrategyProgressive
	// StrategyStreaming - потоковая выдача порций без полной материализации.
	StrategyStreaming
)

// String возвращает читаемое имя стратегии.
func (s Strategy) String() string {
	switch s {
	case StrategyLoadAll:
		return "load_all"
	case StrategyProgressive:
		return "progressive"
	case StrategyStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// LoadingConfig - рекомендация политики загрузки, потребляемая внешним
// слоем интерфейса.
type LoadingConfig struct {
	Strategy            Strategy
	ChunkSize           int
	UseBulkLoad         bool
	UseVirtualScrolling bool
}

// RecommendLoadingConfig - чистая таблица решений по размеру файла и
// оценке числа сообщений. Таблица монотонна: рост входа никогда не
// уменьшает размер порции и не ослабляет стратегию.
func (p Profile) RecommendLoadingConfig(fileSizeMB float64, estimatedMessages int) LoadingConfig {
	s := p.Settings
	cfg := LoadingConfig{
		UseBulkLoad:         s.UseBulkOperations,
		UseVirtualScrolling: estimatedMessages > 5000,
	}

	switch {
	case fileSizeMB > 500 || estimatedMessages > 200000:
		cfg.Strategy = StrategyStreaming
		cfg.ChunkSize = max(s.OptimalChunkSize, 15000)
	case fileSizeMB > 100 || estimatedMessages > 50000:
		cfg.Strategy = StrategyStreaming
		cfg.ChunkSize = s.OptimalChunkSize
	case fileSizeMB > 20 || estimatedMessages > 10000:
		cfg.Strategy = StrategyProgressive
		cfg.ChunkSize = min(s.OptimalChunkSize, 8000)
	default:
		cfg.Strategy = StrategyLoadAll
		cfg.ChunkSize = min(s.OptimalChunkSize, 3000)
	}

	return cfg
}

// OptimalChunkSize подбирает размер порции под размер файла и доступную
// память: на порции отводится не более десятой части доступной памяти
// при средней записи около 2 КБ.
func OptimalChunkSize(fileSizeBytes, availableMemoryBytes int64) int {
	fileSizeMB := float64(fileSizeBytes) / (1024.0 * 1024.0)
	availableMemoryMB := float64(availableMemoryBytes) / (1024.0 * 1024.0)

	targetMemoryMB := availableMemoryMB * 0.1
	if targetMemoryMB > 100 {
		targetMemoryMB = 100
	}
	estimated := int(targetMemoryMB * 1024 / 2)

	switch {
	case fileSizeMB < 10:
		return min(estimated, 1000)
	case fileSizeMB < 50:
		return min(estimated, 2000)
	case fileSizeMB < 200:
		return min(estimated, 5000)
	default:
		return max(1000, min(estimated, 10000))
	}
}
