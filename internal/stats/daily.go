package stats

import "time"

// This file contains helpers around daily stats. It complements stats.go.

// now is swapped in tests.
var now = time.Now

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// ResetDaily clears the in-memory daily worst-wound map.
// Intended for tests and dev convenience.
func ResetDaily() {
	statsMu.Lock()
	defer statsMu.Unlock()
	for k := range dailyWorst {
		delete(dailyWorst, k)
	}
}

// Reset clears everything. Tests only.
func Reset() {
	ResetDaily()
	statsMu.Lock()
	defer statsMu.Unlock()
	for k := range charStats {
		delete(charStats, k)
	}
}
