package telemetry

import "testing"

func testThresholds() BookmarkThresholds {
	return BookmarkThresholds{
		FullReleaseMaxCylinder: 5000,
		FullReleaseMinPeak:     100000,
		StoppedSpeed:           0.05,
		MainReservoirLowFrac:   0.85,
	}
}

// quiet is a moving, released train with a full main reservoir.
func quiet(tick int32) WindowStats {
	return WindowStats{
		WindowEndTick:        tick,
		Speed:                20,
		Cars:                 4,
		MinBrakePipe:         490000,
		MinMainReservoirFrac: 1,
	}
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Quiet(t *testing.T) {
	bd := NewBookmarkDetector(10, testThresholds())
	for i := int32(1); i <= 5; i++ {
		if got := bd.Check(quiet(i * 300)); len(got) != 0 {
			t.Fatalf("window %d: unexpected bookmarks %v", i, got)
		}
	}
}

func TestBookmarkDetector_Emergency(t *testing.T) {
	bd := NewBookmarkDetector(10, testThresholds())
	bd.Check(quiet(300))

	s := quiet(600)
	s.EmergencyTicks = 40
	s.EmergencyCars = 4
	got := bd.Check(s)
	if !hasBookmark(got, BookmarkEmergency) {
		t.Error("expected emergency bookmark")
	}
	if hasBookmark(got, BookmarkPipeBreak) {
		t.Error("commanded emergency reported as pipe break")
	}

	// Still in emergency: fires once per episode
	s.WindowEndTick = 900
	if hasBookmark(bd.Check(s), BookmarkEmergency) {
		t.Error("emergency bookmark repeated")
	}
}

func TestBookmarkDetector_PipeBreak(t *testing.T) {
	bd := NewBookmarkDetector(10, testThresholds())
	s := quiet(300)
	s.EmergencyTicks = 10
	s.InterlockTicks = 10
	s.MinBrakePipe = 0
	got := bd.Check(s)
	if !hasBookmark(got, BookmarkPipeBreak) || !hasBookmark(got, BookmarkEmergency) {
		t.Errorf("expected pipe_break and emergency bookmarks, got %v", got)
	}
}

func TestBookmarkDetector_FullRelease(t *testing.T) {
	bd := NewBookmarkDetector(10, testThresholds())

	// Released without a prior application: nothing to report
	if hasBookmark(bd.Check(quiet(300)), BookmarkFullRelease) {
		t.Fatal("full release without a prior application")
	}

	applied := quiet(600)
	applied.CylinderPeak = 400000
	applied.CylinderMax = 400000
	bd.Check(applied)

	partial := quiet(900)
	partial.CylinderPeak = 400000
	partial.CylinderMax = 150000
	if hasBookmark(bd.Check(partial), BookmarkFullRelease) {
		t.Fatal("full release while cylinders still charged")
	}

	// Released within the window: peak is high but every cylinder is empty
	released := quiet(1200)
	released.CylinderPeak = 150000
	released.CylinderMax = 2000
	if !hasBookmark(bd.Check(released), BookmarkFullRelease) {
		t.Fatal("expected full_release bookmark")
	}
	if hasBookmark(bd.Check(quiet(1500)), BookmarkFullRelease) {
		t.Error("full_release repeated")
	}
}

func TestBookmarkDetector_TrainStopped(t *testing.T) {
	bd := NewBookmarkDetector(10, testThresholds())
	bd.Check(quiet(300))

	s := quiet(600)
	s.Speed = 0
	s.Distance = 412
	if !hasBookmark(bd.Check(s), BookmarkTrainStopped) {
		t.Fatal("expected train_stopped bookmark")
	}
	s.WindowEndTick = 900
	if hasBookmark(bd.Check(s), BookmarkTrainStopped) {
		t.Error("train_stopped repeated while standing")
	}
}

func TestBookmarkDetector_MainReservoirLow(t *testing.T) {
	bd := NewBookmarkDetector(10, testThresholds())
	s := quiet(300)
	s.MinMainReservoirFrac = 0.8
	if !hasBookmark(bd.Check(s), BookmarkMainReservoirLow) {
		t.Fatal("expected main_reservoir_low bookmark")
	}
	// Recovers, then drops again
	bd.Check(quiet(600))
	s.WindowEndTick = 900
	if !hasBookmark(bd.Check(s), BookmarkMainReservoirLow) {
		t.Error("expected main_reservoir_low after recovery")
	}
}

func TestBookmarkDetector_MainReservoirLowSustained(t *testing.T) {
	th := testThresholds()
	th.MainReservoirLowWindows = 3
	bd := NewBookmarkDetector(10, th)

	low := func(tick int32) WindowStats {
		s := quiet(tick)
		s.MinMainReservoirFrac = 0.8
		return s
	}

	// A dip shorter than three windows is not reported
	for _, s := range []WindowStats{low(300), low(600), quiet(900), low(1200), low(1500)} {
		if hasBookmark(bd.Check(s), BookmarkMainReservoirLow) {
			t.Fatalf("main_reservoir_low at tick %d before three low windows", s.WindowEndTick)
		}
	}
	got := bd.Check(low(1800))
	if !hasBookmark(got, BookmarkMainReservoirLow) {
		t.Fatal("expected main_reservoir_low on the third consecutive low window")
	}
	for _, bm := range got {
		if bm.Type == BookmarkMainReservoirLow && bm.Tick != 1800 {
			t.Errorf("tick = %d, want 1800", bm.Tick)
		}
	}
	if hasBookmark(bd.Check(low(2100)), BookmarkMainReservoirLow) {
		t.Error("main_reservoir_low repeated while still low")
	}
}

func TestBookmarkDetector_MainReservoirLowWindowsCapped(t *testing.T) {
	th := testThresholds()
	th.MainReservoirLowWindows = 5
	bd := NewBookmarkDetector(2, th)

	s := quiet(300)
	s.MinMainReservoirFrac = 0.8
	if hasBookmark(bd.Check(s), BookmarkMainReservoirLow) {
		t.Fatal("fired after one window")
	}
	s.WindowEndTick = 600
	if !hasBookmark(bd.Check(s), BookmarkMainReservoirLow) {
		t.Error("expected the requirement to be capped at the history size")
	}
}

func TestBookmarkDetector_History(t *testing.T) {
	bd := NewBookmarkDetector(3, testThresholds())
	for i := int32(1); i <= 5; i++ {
		bd.Check(quiet(i))
	}
	h := bd.History()
	if len(h) != 3 {
		t.Fatalf("history length = %d, want 3", len(h))
	}
	for i, want := range []int32{3, 4, 5} {
		if h[i].WindowEndTick != want {
			t.Errorf("history[%d] = %d, want %d", i, h[i].WindowEndTick, want)
		}
	}
}
