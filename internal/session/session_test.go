package session

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCountersMonotonic(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)

	pattern := []bool{true, true, false, true, false, false, true, true, true, false}
	prevCorrect, prevTotal := 0, 0

	for i, ok := range pattern {
		ts := t0.Add(time.Duration(i) * time.Second)
		if err := s.RecordKeystroke("a", ok, ts, ts); err != nil {
			t.Fatalf("keystroke %d: %v", i, err)
		}
		correct, total := s.Counts()
		if correct > total {
			t.Fatalf("correct %d exceeds total %d after keystroke %d", correct, total, i)
		}
		if correct < prevCorrect || total < prevTotal {
			t.Fatalf("counters went backwards after keystroke %d", i)
		}
		prevCorrect, prevTotal = correct, total
	}

	correct, total := s.Counts()
	if correct != 6 || total != 10 {
		t.Errorf("expected 6/10, got %d/%d", correct, total)
	}
}

func TestRecordBeforeStart(t *testing.T) {
	s := New("s1", "", 0)

	if err := s.RecordKeystroke("a", true, t0, t0); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if _, total := s.Counts(); total != 0 {
		t.Errorf("rejected keystroke mutated counters: total=%d", total)
	}
}

func TestRecordAfterFinish(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)
	if err := s.RecordKeystroke("a", true, t0, t0); err != nil {
		t.Fatalf("keystroke: %v", err)
	}

	if _, err := s.Finish(t0.Add(5 * time.Second)); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if err := s.RecordKeystroke("b", true, t0, t0); err != ErrClosed {
		t.Errorf("expected ErrClosed after finish, got %v", err)
	}
	correct, total := s.Counts()
	if correct != 1 || total != 1 {
		t.Errorf("rejected keystroke changed counters: %d/%d", correct, total)
	}
}

func TestDoubleFinish(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)

	if _, err := s.Finish(t0.Add(time.Second)); err != nil {
		t.Fatalf("first finish: %v", err)
	}
	if _, err := s.Finish(t0.Add(2 * time.Second)); err != ErrClosed {
		t.Errorf("expected ErrClosed on second finish, got %v", err)
	}
}

func TestFinishBeforeStart(t *testing.T) {
	s := New("s1", "", 0)

	if _, err := s.Finish(t0); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestDoubleStartResets(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)
	for i := 0; i < 5; i++ {
		ts := t0.Add(time.Duration(i) * time.Second)
		if err := s.RecordKeystroke("a", i%2 == 0, ts, ts); err != nil {
			t.Fatalf("keystroke: %v", err)
		}
	}

	restart := t0.Add(time.Minute)
	s.Start(restart)

	correct, total := s.Counts()
	if correct != 0 || total != 0 {
		t.Errorf("expected counters reset, got %d/%d", correct, total)
	}
	if s.KeystrokeCount() != 0 {
		t.Errorf("expected log reset, got %d entries", s.KeystrokeCount())
	}
	if !s.StartTime().Equal(restart) {
		t.Errorf("expected start time re-armed to %v, got %v", restart, s.StartTime())
	}
	if s.Finished() {
		t.Error("restart left session finished")
	}
}

func TestRestartAfterFinish(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)
	if _, err := s.Finish(t0.Add(time.Second)); err != nil {
		t.Fatalf("finish: %v", err)
	}

	s.Start(t0.Add(time.Minute))

	if err := s.RecordKeystroke("a", true, t0.Add(61*time.Second), t0.Add(61*time.Second)); err != nil {
		t.Errorf("keystroke after restart: %v", err)
	}
}

func TestKeystrokeLogCap(t *testing.T) {
	s := New("s1", "", 3)
	s.Start(t0)

	for i := 0; i < 10; i++ {
		ts := t0.Add(time.Duration(i) * time.Second)
		if err := s.RecordKeystroke("a", true, ts, ts); err != nil {
			t.Fatalf("keystroke %d: %v", i, err)
		}
	}

	if s.KeystrokeCount() != 3 {
		t.Errorf("expected log capped at 3, got %d", s.KeystrokeCount())
	}
	correct, total := s.Counts()
	if correct != 10 || total != 10 {
		t.Errorf("counters must not depend on retained log, got %d/%d", correct, total)
	}
}

func TestSnapshotPure(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)
	for i := 0; i < 8; i++ {
		ts := t0.Add(time.Duration(i) * time.Second)
		if err := s.RecordKeystroke("a", i != 3, ts, ts); err != nil {
			t.Fatalf("keystroke: %v", err)
		}
	}

	now := t0.Add(10 * time.Second)
	first := s.Snapshot(now)
	second := s.Snapshot(now)

	if first != second {
		t.Errorf("snapshot not pure: %+v vs %+v", first, second)
	}
	if first.GrossWPM != 9.6 || first.NetWPM != 8.4 || first.Accuracy != 87.5 {
		t.Errorf("unexpected snapshot: %+v", first)
	}
}

func TestSnapshotUnstarted(t *testing.T) {
	s := New("s1", "", 0)

	snap := s.Snapshot(t0)

	if snap.GrossWPM != 0 || snap.NetWPM != 0 || snap.Accuracy != 100 {
		t.Errorf("unexpected snapshot for unstarted session: %+v", snap)
	}
}

func TestTouchUpdatesLiveness(t *testing.T) {
	s := New("s1", "", 0)
	s.Start(t0)

	later := t0.Add(45 * time.Second)
	s.Touch(later)

	if !s.LastActivity().Equal(later) {
		t.Errorf("expected last activity %v, got %v", later, s.LastActivity())
	}
}
