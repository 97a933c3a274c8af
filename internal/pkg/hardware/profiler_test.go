package hardware

import (
	"io"
	"log/slog"
	"testing"
)

func TestScoreTier(t *testing.T) {
	cases := []struct {
		name   string
		cores  int
		memMB  int64
		ssd    bool
		expect Tier
	}{
		{"слабая машина", 2, 4096, false, TierBasic},
		{"слабая машина с SSD", 2, 4096, true, TierBasic},
		{"середняк", 4, 8192, false, TierStandard},
		{"середняк с SSD", 4, 8192, true, TierStandard},
		{"рабочая станция", 8, 16384, false, TierHigh},
		{"рабочая станция с SSD", 8, 16384, true, TierHigh},
		{"сервер", 16, 32768, false, TierExtreme},
		{"сервер с SSD", 16, 32768, true, TierExtreme},
		{"много ядер при малой памяти", 16, 4096, true, TierHigh},
		{"много памяти при малом числе ядер", 2, 32768, true, TierHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Profile{LogicalCores: tc.cores, TotalMemoryMB: tc.memMB, HasSSD: tc.ssd}
			if got := scoreTier(p); got != tc.expect {
				t.Errorf("Ожидался класс %v, получен %v", tc.expect, got)
			}
		})
	}
}

func TestSettingsFor(t *testing.T) {
	t.Run("настройки растут вместе с классом", func(t *testing.T) {
		tiers := []Tier{TierBasic, TierStandard, TierHigh, TierExtreme}
		prevChunk := 0
		prevBuf := 0
		for _, tier := range tiers {
			s := settingsFor(tier, 16384, true)
			if s.OptimalChunkSize < prevChunk {
				t.Errorf("Размер порции уменьшился на классе %v", tier)
			}
			if s.IOBufferSize < prevBuf {
				t.Errorf("Размер буфера уменьшился на классе %v", tier)
			}
			prevChunk = s.OptimalChunkSize
			prevBuf = s.IOBufferSize
		}
	})

	t.Run("базовый класс отключает параллельный разбор", func(t *testing.T) {
		s := settingsFor(TierBasic, 4096, false)
		if s.UseParallelParsing {
			t.Error("Ожидалось отключение параллельного разбора на Basic")
		}
		if s.MaxParallelWorkers > 2 {
			t.Errorf("Ожидалось не больше 2 воркеров, получено %d", s.MaxParallelWorkers)
		}
	})

	t.Run("пул памяти ограничен долей доступной", func(t *testing.T) {
		s := settingsFor(TierExtreme, 1000, true)
		if s.MemoryPoolMB > 300 {
			t.Errorf("Пул превысил 30%% доступной памяти: %d", s.MemoryPoolMB)
		}
	})
}

func TestDetect(t *testing.T) {
	t.Run("профиль всегда пригоден к использованию", func(t *testing.T) {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		p := Detect(log)
		if p.Settings.MaxParallelWorkers < 1 {
			t.Errorf("Ожидался хотя бы один воркер, получено %d", p.Settings.MaxParallelWorkers)
		}
		if p.Settings.OptimalChunkSize < 1 {
			t.Errorf("Ожидался положительный размер порции, получено %d", p.Settings.OptimalChunkSize)
		}
		if p.LogicalCores < 1 {
			t.Errorf("Ожидалось хотя бы одно логическое ядро, получено %d", p.LogicalCores)
		}
	})
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.Tier != TierStandard {
		t.Errorf("Ожидался класс Standard, получен %v", p.Tier)
	}
	if !p.Settings.UseParallelParsing {
		t.Error("Профиль по умолчанию должен разрешать параллельный разбор")
	}
}
