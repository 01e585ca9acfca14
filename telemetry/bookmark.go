package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkEmergency        BookmarkType = "emergency"
	BookmarkPipeBreak        BookmarkType = "pipe_break"
	BookmarkFullRelease      BookmarkType = "full_release"
	BookmarkTrainStopped     BookmarkType = "train_stopped"
	BookmarkMainReservoirLow BookmarkType = "main_reservoir_low"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkThresholds configures the detector.
type BookmarkThresholds struct {
	FullReleaseMaxCylinder  float64 // Every cylinder at or below this counts as released
	FullReleaseMinPeak      float64 // A prior window must have peaked at or above this
	StoppedSpeed            float64 // m/s
	MainReservoirLowFrac    float64 // Of main reservoir capacity
	MainReservoirLowWindows int     // Consecutive windows below MainReservoirLowFrac
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	thresholds BookmarkThresholds

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// Edge tracking
	inEmergency bool
	interlocked bool
	applied     bool // A window peaked above FullReleaseMinPeak since the last release
	stopped     bool
	mainLow     bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, th BookmarkThresholds) *BookmarkDetector {
	if historySize < 1 {
		historySize = 1
	}
	th.MainReservoirLowWindows = min(max(th.MainReservoirLowWindows, 1), historySize)
	return &BookmarkDetector{
		thresholds:  th,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
// Each bookmark fires on the window where its condition starts to hold.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	bd.addToHistory(stats)

	if b := bd.checkEmergency(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkPipeBreak(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkFullRelease(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkTrainStopped(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkMainReservoirLow(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// History returns the retained windows, oldest first.
func (bd *BookmarkDetector) History() []WindowStats {
	if !bd.historyFull {
		return append([]WindowStats(nil), bd.history[:bd.historyIdx]...)
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

// recent calls fn on the last n retained windows, newest first, and reports
// whether every call returned true. Fewer than n retained windows is false.
func (bd *BookmarkDetector) recent(n int, fn func(WindowStats) bool) bool {
	retained := bd.historyIdx
	if bd.historyFull {
		retained = bd.historySize
	}
	if n > retained {
		return false
	}
	for i := 1; i <= n; i++ {
		idx := (bd.historyIdx - i + bd.historySize) % bd.historySize
		if !fn(bd.history[idx]) {
			return false
		}
	}
	return true
}

func (bd *BookmarkDetector) checkEmergency(stats WindowStats) *Bookmark {
	was := bd.inEmergency
	bd.inEmergency = stats.EmergencyTicks > 0
	if was || !bd.inEmergency {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkEmergency,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Emergency on %d of %d cars, peak cylinder %.0f Pa", stats.EmergencyCars, stats.Cars, stats.CylinderPeak),
	}
}

func (bd *BookmarkDetector) checkPipeBreak(stats WindowStats) *Bookmark {
	was := bd.interlocked
	bd.interlocked = stats.InterlockTicks > 0
	if was || !bd.interlocked {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPipeBreak,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Brake pipe fell to %.0f Pa without a commanded emergency", stats.MinBrakePipe),
	}
}

func (bd *BookmarkDetector) checkFullRelease(stats WindowStats) *Bookmark {
	if stats.CylinderPeak >= bd.thresholds.FullReleaseMinPeak && stats.CylinderMax > bd.thresholds.FullReleaseMaxCylinder {
		bd.applied = true
		return nil
	}
	if !bd.applied || stats.Cars == 0 || stats.CylinderMax > bd.thresholds.FullReleaseMaxCylinder {
		return nil
	}
	bd.applied = false
	return &Bookmark{
		Type:        BookmarkFullRelease,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("All %d cylinders released, max %.0f Pa", stats.Cars, stats.CylinderMax),
	}
}

func (bd *BookmarkDetector) checkTrainStopped(stats WindowStats) *Bookmark {
	was := bd.stopped
	bd.stopped = stats.Speed <= bd.thresholds.StoppedSpeed
	if was || !bd.stopped {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkTrainStopped,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Train stopped after %.1f m at %.1f s", stats.Distance, stats.SimTimeSec),
	}
}

func (bd *BookmarkDetector) checkMainReservoirLow(stats WindowStats) *Bookmark {
	n := bd.thresholds.MainReservoirLowWindows
	was := bd.mainLow
	bd.mainLow = bd.recent(n, func(w WindowStats) bool {
		return w.MinMainReservoirFrac < bd.thresholds.MainReservoirLowFrac
	})
	if was || !bd.mainLow {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkMainReservoirLow,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Main reservoir below %.0f%% of capacity for %d windows, now %.0f%%", bd.thresholds.MainReservoirLowFrac*100, n, stats.MinMainReservoirFrac*100),
	}
}
