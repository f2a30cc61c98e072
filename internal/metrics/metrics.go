package metrics

import (
	"math"
	"time"
)

// Snapshot is a point-in-time set of performance figures derived from the
// running counters. It is computed fresh on every request and never cached;
// the values depend on the wall clock at computation time.
type Snapshot struct {
	GrossWPM     float64 `json:"gross_wpm"`
	NetWPM       float64 `json:"net_wpm"`
	Accuracy     float64 `json:"accuracy"`
	Errors       int     `json:"errors"`
	TotalChars   int     `json:"total_chars"`
	CorrectChars int     `json:"correct_chars"`
}

// Calculate derives WPM and accuracy figures from the keystroke counters.
// A word is the usual 5 characters. Non-positive elapsed time (including
// now before startTime, which a skewed client clock can produce) yields
// zero WPM and 100% accuracy instead of negative or infinite figures.
func Calculate(correct, total int, startTime, now time.Time) Snapshot {
	snap := Snapshot{
		Errors:       total - correct,
		TotalChars:   total,
		CorrectChars: correct,
	}

	elapsed := now.Sub(startTime)
	if elapsed <= 0 {
		snap.Accuracy = 100
		return snap
	}

	minutes := elapsed.Minutes()
	snap.GrossWPM = round1(math.Max(0, (float64(total)/5.0)/minutes))
	snap.NetWPM = round1(math.Max(0, (float64(correct)/5.0)/minutes))

	if total > 0 {
		snap.Accuracy = round1(100 * float64(correct) / float64(total))
	} else {
		snap.Accuracy = 100
	}

	return snap
}

// round1 rounds to one decimal place for presentation. The counters
// themselves stay exact; only the derived figures are rounded.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
