package ingest

import (
	"time"

	"github.com/kinemetry/kinemetry/internal/measure"
)

// Plan computes the served window and the fetch start time.
//
// The window is the trailing windowDays range ending at selectedDate,
// both bounds in UTC. When repullAll is set or the cache is empty, the
// whole window is re-fetched. Otherwise fetching resumes at the newest
// cached timestamp, bounded below by the window start so data already
// cached but outside the window is not pulled again.
func Plan(selectedDate time.Time, windowDays int, repullAll bool, cached []measure.Sample) (measure.Window, time.Time) {
	upper := selectedDate.UTC()
	w := measure.Window{
		Lower: upper.Add(-time.Duration(windowDays) * 24 * time.Hour),
		Upper: upper,
	}

	if repullAll || len(cached) == 0 {
		return w, w.Lower
	}

	fetchStart := measure.MaxTime(cached)
	if fetchStart.Before(w.Lower) {
		fetchStart = w.Lower
	}
	return w, fetchStart
}
