package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	t.Run("пустая конфигурация получает значения по умолчанию", func(t *testing.T) {
		cfg := validConfig()
		assert.Equal(t, DefaultServerHost, cfg.Server.Host)
		assert.Equal(t, DefaultServerPort, cfg.Server.Port)
		assert.Equal(t, DefaultStreamChunkSize, cfg.Ingestion.StreamChunkSize)
		assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
		assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	})

	t.Run("заданные значения не перетираются", func(t *testing.T) {
		cfg := &Config{}
		cfg.Server.Port = 9090
		cfg.Logging.Level = "debug"
		cfg.applyDefaults()
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestValidate(t *testing.T) {
	t.Run("конфигурация по умолчанию валидна", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("недопустимый порт", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("недопустимый уровень логирования", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("недопустимый формат логирования", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Format = "xml"
		assert.Error(t, cfg.Validate())
	})

	t.Run("отрицательный размер порции потока", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ingestion.StreamChunkSize = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("нулевой таймаут задачи означает отсутствие ограничений", func(t *testing.T) {
		cfg := validConfig()
		cfg.Processing.TaskTimeoutSeconds = 0
		// Ноль допустим, но applyDefaults его уже заменил; ставим явно.
		assert.NoError(t, cfg.Validate())
	})
}

func TestDerivedValues(t *testing.T) {
	t.Run("Address собирает host:port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = 9000
		assert.Equal(t, "127.0.0.1:9000", cfg.Address())
	})

	t.Run("длительности выводятся из целочисленных полей", func(t *testing.T) {
		cfg := validConfig()
		cfg.Processing.CacheTTLMinutes = 30
		assert.Equal(t, "30m0s", cfg.CacheTTL().String())
		cfg.Server.ShutdownTimeoutSeconds = 5
		assert.Equal(t, "5s", cfg.ShutdownTimeout().String())
	})
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("несуществующий файл дает ошибку", func(t *testing.T) {
		_, err := loadFromYAML("no_such_config.yml")
		assert.Error(t, err)
	})
}

func TestGetEnv(t *testing.T) {
	t.Run("отсутствующая переменная дает значение по умолчанию", func(t *testing.T) {
		assert.Equal(t, "fallback", getEnv("VIEWER_TEST_UNSET_VAR", "fallback"))
	})

	t.Run("установленная переменная имеет приоритет", func(t *testing.T) {
		t.Setenv("VIEWER_TEST_VAR", "set")
		assert.Equal(t, "set", getEnv("VIEWER_TEST_VAR", "fallback"))
	})

	t.Run("непригодное целое заменяется умолчанием", func(t *testing.T) {
		t.Setenv("VIEWER_TEST_INT", "не число")
		assert.Equal(t, 42, getEnvInt("VIEWER_TEST_INT", 42))
		t.Setenv("VIEWER_TEST_INT", "17")
		assert.Equal(t, 17, getEnvInt("VIEWER_TEST_INT", 42))
	})
}
