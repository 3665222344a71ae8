package util

import (
	"time"

	"pearldb/pkg/logger"
)

// Progress tracks a long running loop and logs a line whenever another
// tenth of the work finishes, with an estimate of the time remaining.
// It is not safe for concurrent use.
type Progress struct {
	stage   string
	total   int
	count   int
	logged  int
	started time.Time
}

func NewProgress(stage string, total int) *Progress {
	return &Progress{stage: stage, total: total, logged: -1, started: time.Now()}
}

// Tick records one finished item.
func (p *Progress) Tick() {
	p.Add(1)
}

// Add records n finished items.
func (p *Progress) Add(n int) {
	p.count += n
	pct := Percentage(p.count, p.total)
	step := pct - pct%10
	if step <= p.logged && p.count < p.total {
		return
	}
	p.logged = step
	logger.Info(
		"progress",
		"stage", p.stage,
		"done", p.count,
		"total", p.total,
		"pct", pct,
		"remaining", p.Remaining().Round(time.Second),
	)
}

// Percentage returns how much of the work is done, clamped to 0-100.
func Percentage(count, total int) int {
	if total <= 0 || count <= 0 {
		return 0
	}
	if count >= total {
		return 100
	}
	return count * 100 / total
}

// Remaining estimates the time left at the current pace.
func (p *Progress) Remaining() time.Duration {
	if p.count <= 0 || p.count >= p.total {
		return 0
	}
	elapsed := time.Since(p.started)
	return elapsed / time.Duration(p.count) * time.Duration(p.total-p.count)
}
