// Package progress implements a time-sliced percentage/bytes-per-second
// reporter for long-running transfers, throttled to one line per tick
// so a slow link doesn't flood the log.
package progress

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Reporter prints throughput at most once per tick; construct one per
// transfer and call Update after each byte-moving event.
type Reporter struct {
	log       *logrus.Entry
	total     int64
	start     time.Time
	lastTick  time.Time
	lastBytes int64
	tick      time.Duration
	silent    bool
}

// New creates a Reporter for a transfer of total bytes. silent suppresses
// all output (set when the CLI runs at -q).
func New(log *logrus.Entry, total int64, silent bool) *Reporter {
	now := time.Now()
	return &Reporter{log: log, total: total, start: now, lastTick: now, tick: 1 * time.Second, silent: silent}
}

// Update reports the cumulative bytes transferred so far, throttled to
// at most one log line per tick (plus always on completion).
func (r *Reporter) Update(bytesDone int64) {
	if r.silent {
		return
	}
	now := time.Now()
	done := r.total > 0 && bytesDone >= r.total
	if now.Sub(r.lastTick) < r.tick && !done {
		return
	}
	elapsed := now.Sub(r.lastTick).Seconds()
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(bytesDone-r.lastBytes) / elapsed
	}
	pct := float64(100)
	if r.total > 0 {
		pct = float64(bytesDone) * 100 / float64(r.total)
	}
	r.log.Infof("progress: %.1f%% (%d/%d bytes) at %.1f KB/s", pct, bytesDone, r.total, rate/1024)
	r.lastTick = now
	r.lastBytes = bytesDone
}

// Done logs the final elapsed time and average speed, unless silent.
func (r *Reporter) Done(bytesDone int64, success bool) {
	if r.silent {
		return
	}
	elapsed := time.Since(r.start)
	rate := float64(0)
	if elapsed.Seconds() > 0 {
		rate = float64(bytesDone) / elapsed.Seconds()
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	msg := fmt.Sprintf("transfer %s: %d bytes in %s (%.1f KB/s)", status, bytesDone, elapsed.Round(10*time.Millisecond), rate/1024)
	if success {
		r.log.Info(msg)
	} else {
		r.log.Error(msg)
	}
}
