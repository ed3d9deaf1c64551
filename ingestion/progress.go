package ingestion

import (
	"log/slog"
	"time"
)

// progressTracker reports per-store progress every reportInterval products.
type progressTracker struct {
	logger         *slog.Logger
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
}

// newProgressTracker creates a tracker for total items and starts its clock.
func newProgressTracker(logger *slog.Logger, total, reportInterval int) *progressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &progressTracker{
		logger:         logger,
		total:          total,
		reportInterval: reportInterval,
		startTime:      time.Now(),
	}
}

// Increment advances progress by one item.
func (p *progressTracker) Increment() {
	p.current++
	if p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Elapsed returns the time since the tracker was created.
func (p *progressTracker) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

func (p *progressTracker) report() {
	elapsed := p.Elapsed()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	p.logger.Info("progress",
		"done", p.current,
		"total", p.total,
		"percent", percentage,
		"products_per_sec", rate)
}
