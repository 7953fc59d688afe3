package models

import "time"

// ScanStats — счётчики одного цикла сканирования.
type ScanStats struct {
	Profile   string
	StartedAt time.Time
	Elapsed   time.Duration

	Symbols     int // отобрано ранкером
	Batches     int
	Processed   int // пройдено символов
	Scanned     int // дошли до проверки условий
	Filtered    int
	Skipped     int // мало истории
	Unavailable int // фетч не удался после всех попыток

	Bullish int
	Bearish int

	Hits       map[string]int // label -> кол-во срабатываний
	Fired      int
	Suppressed int
}

func NewScanStats(profile string, startedAt time.Time) *ScanStats {
	return &ScanStats{
		Profile:   profile,
		StartedAt: startedAt,
		Hits:      make(map[string]int),
	}
}

func (s *ScanStats) Hit(label string) { s.Hits[label]++ }

// Merge складывает счётчики другого прохода в текущий.
func (s *ScanStats) Merge(o *ScanStats) {
	if o == nil {
		return
	}
	s.Processed += o.Processed
	s.Scanned += o.Scanned
	s.Filtered += o.Filtered
	s.Skipped += o.Skipped
	s.Unavailable += o.Unavailable
	s.Bullish += o.Bullish
	s.Bearish += o.Bearish
	s.Fired += o.Fired
	s.Suppressed += o.Suppressed
	for k, v := range o.Hits {
		s.Hits[k] += v
	}
}
