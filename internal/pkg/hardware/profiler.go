// Package hardware оценивает возможности хоста и выводит из них
// настройки конвейера загрузки: степень параллелизма, размеры порций
// и буферов, флаги возможностей.
package hardware

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Tier - грубый класс производительности оборудования.
type Tier int

const (
	TierBasic Tier = iota
	TierStandard
	TierHigh
	TierExtreme
)

// String возвращает читаемое имя класса.
func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "Basic"
	case TierStandard:
		return "Standard"
	case TierHigh:
		return "High"
	case TierExtreme:
		return "Extreme"
	default:
		return "Unknown"
	}
}

// OptimalSettings - выведенные из класса оборудования настройки конвейера.
type OptimalSettings struct {
	MaxParallelWorkers int
	OptimalChunkSize   int
	IOBufferSize       int
	MemoryPoolMB       int
	UseMemoryMapping   bool
	UseParallelParsing bool
	UseAdvancedCaching bool
	UseBulkOperations  bool
}

// Profile - снимок возможностей хоста. Вычисляется один раз при старте
// процесса и дальше передается по значению; после построения никто не пишет,
// поэтому одновременное чтение безопасно.
type Profile struct {
	LogicalCores      int
	PhysicalCores     int
	TotalMemoryMB     int64
	AvailableMemoryMB int64
	HasSSD            bool
	CPUName           string
	Tier              Tier
	Settings          OptimalSettings
}

// Detect опрашивает хост и строит профиль. Любой сбой опроса не фатален:
// подставляется консервативный профиль по умолчанию.
func Detect(log *slog.Logger) Profile {
	if log == nil {
		log = slog.Default()
	}

	p, err := analyze()
	if err != nil {
		log.Info("Опрос оборудования не удался, используется профиль по умолчанию", "error", err)
		return DefaultProfile()
	}

	p.Tier = scoreTier(p)
	p.Settings = settingsFor(p.Tier, p.AvailableMemoryMB, p.HasSSD)

	log.Info("Анализ оборудования завершен",
		"tier", p.Tier.String(),
		"logical_cores", p.LogicalCores,
		"physical_cores", p.PhysicalCores,
		"total_memory_mb", p.TotalMemoryMB,
		"ssd", p.HasSSD,
	)
	return p
}

// DefaultProfile возвращает консервативный профиль уровня Standard,
// применяемый при недоступности системных данных.
func DefaultProfile() Profile {
	logical := runtime.NumCPU()
	return Profile{
		LogicalCores:      logical,
		PhysicalCores:     max(logical/2, 1),
		TotalMemoryMB:     8192,
		AvailableMemoryMB: 4096,
		HasSSD:            true,
		CPUName:           "Unknown CPU",
		Tier:              TierStandard,
		Settings: OptimalSettings{
			MaxParallelWorkers: 4,
			OptimalChunkSize:   5000,
			IOBufferSize:       262144,
			MemoryPoolMB:       512,
			UseMemoryMapping:   true,
			UseParallelParsing: true,
			UseAdvancedCaching: false,
			UseBulkOperations:  true,
		},
	}
}

// analyze собирает сырые сведения о хосте.
func analyze() (Profile, error) {
	p := Profile{LogicalCores: runtime.NumCPU()}

	total, available, err := readMemInfo()
	if err != nil {
		return Profile{}, fmt.Errorf("не удалось прочитать сведения о памяти: %w", err)
	}
	p.TotalMemoryMB = total
	p.AvailableMemoryMB = available

	// Сбои ниже не фатальны: для них есть разумные приближения.
	p.PhysicalCores, p.CPUName = readCPUInfo(p.LogicalCores)
	p.HasSSD = detectSSD()

	return p, nil
}

// readMemInfo разбирает /proc/meminfo и возвращает общую и доступную
// память в мегабайтах.
func readMemInfo() (int64, int64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var totalKB, availableKB int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB = v
		case "MemAvailable:":
			availableKB = v
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	if totalKB == 0 {
		return 0, 0, fmt.Errorf("в /proc/meminfo нет MemTotal")
	}
	if availableKB == 0 {
		// Старые ядра не отдают MemAvailable; берем половину общей.
		availableKB = totalKB / 2
	}
	return totalKB / 1024, availableKB / 1024, nil
}

// readCPUInfo извлекает число физических ядер и имя процессора из
// /proc/cpuinfo; при неудаче предполагается гипертрединг.
func readCPUInfo(logical int) (int, string) {
	physical := max(logical/2, 1)
	name := "Unknown CPU"

	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return physical, name
	}
	defer f.Close()

	packages := make(map[string]bool)
	coresPerPackage := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, found := strings.Cut(sc.Text(), ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "model name":
			if name == "Unknown CPU" && value != "" {
				name = value
			}
		case "physical id":
			packages[value] = true
		case "cpu cores":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				coresPerPackage = v
			}
		}
	}
	if coresPerPackage > 0 {
		physical = coresPerPackage * max(len(packages), 1)
	}
	return physical, name
}

// detectSSD угадывает класс накопителя по флагу rotational блочных
// устройств. Ошибки трактуются в пользу SSD: на современных системах
// это наиболее вероятный вариант.
func detectSSD() bool {
	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return true
	}
	sawRotational := false
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join("/sys/block", e.Name(), "queue", "rotational"))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(string(data)) {
		case "0":
			return true
		case "1":
			sawRotational = true
		}
	}
	return !sawRotational
}

// scoreTier назначает класс по взвешенной сумме: ядра (пороги 4/8/16),
// память (пороги 8/16/32 ГБ) и бонус за SSD.
func scoreTier(p Profile) Tier {
	score := 0

	switch {
	case p.LogicalCores >= 16:
		score += 3
	case p.LogicalCores >= 8:
		score += 2
	case p.LogicalCores >= 4:
		score += 1
	}

	switch {
	case p.TotalMemoryMB >= 32000:
		score += 3
	case p.TotalMemoryMB >= 16000:
		score += 2
	case p.TotalMemoryMB >= 8000:
		score += 1
	}

	if p.HasSSD {
		score++
	}

	switch {
	case score >= 6:
		return TierExtreme
	case score >= 4:
		return TierHigh
	case score >= 2:
		return TierStandard
	default:
		return TierBasic
	}
}

// settingsFor - фиксированная таблица настроек по классу. Для каждого
// класса таблица детерминирована; доступная память лишь ограничивает
// размер пула сверху.
func settingsFor(tier Tier, availableMB int64, hasSSD bool) OptimalSettings {
	logical := runtime.NumCPU()

	switch tier {
	case TierExtreme:
		return OptimalSettings{
			MaxParallelWorkers: min(logical, 12),
			OptimalChunkSize:   20000,
			IOBufferSize:       1048576,
			MemoryPoolMB:       int(min64(availableMB*30/100, 2048)),
			UseMemoryMapping:   true,
			UseParallelParsing: true,
			UseAdvancedCaching: true,
			UseBulkOperations:  true,
		}
	case TierHigh:
		return OptimalSettings{
			MaxParallelWorkers: min(logical, 8),
			OptimalChunkSize:   10000,
			IOBufferSize:       524288,
			MemoryPoolMB:       int(min64(availableMB*25/100, 1024)),
			UseMemoryMapping:   true,
			UseParallelParsing: true,
			UseAdvancedCaching: true,
			UseBulkOperations:  true,
		}
	case TierStandard:
		return OptimalSettings{
			MaxParallelWorkers: min(logical, 4),
			OptimalChunkSize:   5000,
			IOBufferSize:       262144,
			MemoryPoolMB:       int(min64(availableMB*20/100, 512)),
			UseMemoryMapping:   hasSSD,
			UseParallelParsing: true,
			UseAdvancedCaching: false,
			UseBulkOperations:  true,
		}
	default:
		return OptimalSettings{
			MaxParallelWorkers: min(logical, 2),
			OptimalChunkSize:   2000,
			IOBufferSize:       131072,
			MemoryPoolMB:       int(min64(availableMB*15/100, 256)),
			UseMemoryMapping:   false,
			UseParallelParsing: false,
			UseAdvancedCaching: false,
			UseBulkOperations:  false,
		}
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
