package bot

import (
	"sync/atomic"
	"time"
)

// Stats counts request outcomes since the process started.
type Stats struct {
	startedAt    time.Time
	translations atomic.Int64
	answers      atomic.Int64
	denied       atomic.Int64
	failed       atomic.Int64
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

type StatsSnapshot struct {
	StartedAt    time.Time
	Translations int64
	Answers      int64
	Denied       int64
	Failed       int64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		StartedAt:    s.startedAt,
		Translations: s.translations.Load(),
		Answers:      s.answers.Load(),
		Denied:       s.denied.Load(),
		Failed:       s.failed.Load(),
	}
}
