// Package log собирает журналирование приложения: ротацию файла журнала
// и конструирование slog-логгера из конфигурации.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatingWriter пишет в файл журнала и при превышении порога размера
// переименовывает его в резервную копию с отметкой времени. Хранится не
// больше maxBackups копий, лишние удаляются начиная с самых старых.
type RotatingWriter struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	file       *os.File
	size       int64
}

// NewRotatingWriter открывает файл журнала на дозапись.
func NewRotatingWriter(path string, maxSizeMB, maxBackups int) (*RotatingWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("не указан путь к файлу журнала")
	}
	if maxSizeMB <= 0 {
		return nil, fmt.Errorf("порог размера журнала должен быть положительным")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог журнала: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл журнала %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("не удалось получить сведения о файле журнала: %w", err)
	}

	return &RotatingWriter{
		path:       path,
		maxBytes:   int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		file:       f,
		size:       info.Size(),
	}, nil
}

// Write реализует io.Writer. Проверка порога выполняется до записи,
// чтобы одна запись не разрезалась между файлами.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxBytes && w.size > 0 {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close закрывает текущий файл журнала.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// rotate переименовывает текущий файл в копию с отметкой времени и
// открывает новый. Вызывается под мьютексом.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("не удалось закрыть файл журнала перед ротацией: %w", err)
	}

	// Наносекунды в суффиксе: две ротации в одну секунду не должны
	// затирать предыдущую копию.
	backup := fmt.Sprintf("%s.%s", w.path, time.Now().Format("20060102-150405.000000000"))
	if err := os.Rename(w.path, backup); err != nil {
		return fmt.Errorf("не удалось переименовать файл журнала: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("не удалось открыть новый файл журнала: %w", err)
	}
	w.file = f
	w.size = 0

	w.pruneBackups()
	return nil
}

// pruneBackups удаляет самые старые резервные копии сверх maxBackups.
// Сбой удаления не влияет на запись журнала.
func (w *RotatingWriter) pruneBackups() {
	pattern := w.path + ".*"
	backups, err := filepath.Glob(pattern)
	if err != nil || len(backups) <= w.maxBackups {
		return
	}

	// Отметка времени в имени лексикографически упорядочена по времени.
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-w.maxBackups] {
		if !strings.HasPrefix(old, w.path+".") {
			continue
		}
		os.Remove(old)
	}
}
