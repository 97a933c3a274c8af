// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию сервера
type Server struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	MaxUploadSizeMB        int    `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
}

// Ingestion содержит конфигурацию конвейера загрузки файлов экспорта
type Ingestion struct {
	StreamChunkSize       int `json:"stream_chunk_size" yaml:"stream_chunk_size"`
	MinParallelFileSizeMB int `json:"min_parallel_file_size_mb" yaml:"min_parallel_file_size_mb"`
	WorkerOverride        int `json:"worker_override" yaml:"worker_override"` // 0 - взять из профиля оборудования
}

// Processing содержит конфигурацию обработки
type Processing struct {
	TaskTimeoutSeconds int `json:"task_timeout_seconds" yaml:"task_timeout_seconds"` // 0 - без ограничений
	CacheTTLMinutes    int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level      string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format     string `json:"format" yaml:"format"` // text, json
	File       string `json:"file" yaml:"file"`     // пустая строка - только stdout
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Ingestion  Ingestion  `json:"ingestion" yaml:"ingestion"`
	Processing Processing `json:"processing" yaml:"processing"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из переменных окружения, .env файла или config.yml
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Если .env файла не существует, это нормально, мы будем полагаться на переменные окружения или config.yml
	}

	// Попытка загрузки из config.yml сначала
	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если загрузка YAML не удалась, используем переменные окружения
		cfg = loadFromEnv()
	}

	cfg.applyDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения (обратная совместимость)
func loadFromEnv() *Config {
	return &Config{
		Server: Server{
			Host:                   getEnv("SERVER_HOST", DefaultServerHost),
			Port:                   getEnvInt("SERVER_PORT", DefaultServerPort),
			ShutdownTimeoutSeconds: getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", int(DefaultShutdownTimeout.Seconds())),
			MaxUploadSizeMB:        getEnvInt("MAX_UPLOAD_SIZE_MB", DefaultMaxUploadSizeMB),
		},
		Ingestion: Ingestion{
			StreamChunkSize:       getEnvInt("STREAM_CHUNK_SIZE", DefaultStreamChunkSize),
			MinParallelFileSizeMB: getEnvInt("MIN_PARALLEL_FILE_SIZE_MB", DefaultMinParallelFileSizeMB),
			WorkerOverride:        getEnvInt("WORKER_OVERRIDE", DefaultWorkerOverride),
		},
		Processing: Processing{
			TaskTimeoutSeconds: getEnvInt("TASK_TIMEOUT_SECONDS", int(DefaultTaskTimeout.Seconds())),
			CacheTTLMinutes:    getEnvInt("CACHE_TTL_MINUTES", int(DefaultCacheTTL.Minutes())),
		},
		Logging: Logging{
			Level:      getEnv("LOG_LEVEL", DefaultLogLevel),
			Format:     getEnv("LOG_FORMAT", DefaultLogFormat),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", DefaultLogMaxSizeMB),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", DefaultLogMaxBackups),
		},
	}
}

// applyDefaults заполняет нулевые значения значениями по умолчанию,
// чтобы частичный config.yml оставался допустимым.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = int(DefaultShutdownTimeout.Seconds())
	}
	if c.Server.MaxUploadSizeMB == 0 {
		c.Server.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if c.Ingestion.StreamChunkSize == 0 {
		c.Ingestion.StreamChunkSize = DefaultStreamChunkSize
	}
	if c.Ingestion.MinParallelFileSizeMB == 0 {
		c.Ingestion.MinParallelFileSizeMB = DefaultMinParallelFileSizeMB
	}
	if c.Processing.TaskTimeoutSeconds == 0 {
		c.Processing.TaskTimeoutSeconds = int(DefaultTaskTimeout.Seconds())
	}
	if c.Processing.CacheTTLMinutes == 0 {
		c.Processing.CacheTTLMinutes = int(DefaultCacheTTL.Minutes())
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ShutdownTimeout возвращает тайм-аут остановки сервера как Duration
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// TaskTimeout возвращает тайм-аут задачи как Duration (0 - без ограничений)
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Processing.TaskTimeoutSeconds) * time.Second
}

// CacheTTL возвращает время жизни записи кэша как Duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Processing.CacheTTLMinutes) * time.Minute
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Ingestion.StreamChunkSize <= 0 {
		return fmt.Errorf("ingestion.stream_chunk_size должно быть положительным")
	}

	if c.Ingestion.MinParallelFileSizeMB < 0 {
		return fmt.Errorf("ingestion.min_parallel_file_size_mb должно быть неотрицательным")
	}

	if c.Ingestion.WorkerOverride < 0 {
		return fmt.Errorf("ingestion.worker_override должно быть неотрицательным (0 для профиля оборудования)")
	}

	if c.Processing.TaskTimeoutSeconds < 0 {
		return fmt.Errorf("processing.task_timeout_seconds должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.CacheTTLMinutes <= 0 {
		return fmt.Errorf("processing.cache_ttl_minutes должно быть положительным целым числом")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "text", "json":
		// all good
	default:
		return fmt.Errorf("logging.format должен быть одним из: text, json")
	}

	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB <= 0 {
			return fmt.Errorf("logging.max_size_mb должно быть положительным")
		}
		if c.Logging.MaxBackups < 0 {
			return fmt.Errorf("logging.max_backups должно быть неотрицательным")
		}
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt извлекает целочисленную переменную окружения; непригодное
// значение заменяется значением по умолчанию.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return v
}
