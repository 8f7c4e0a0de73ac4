package ingest

import (
	"testing"
	"time"

	"github.com/kinemetry/kinemetry/internal/measure"
)

func day(d int) time.Time {
	base := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, d)
}

func TestPlanWindowBounds(t *testing.T) {
	w, _ := Plan(day(0), 30, false, nil)

	if !w.Upper.Equal(day(0)) {
		t.Errorf("upper = %v", w.Upper)
	}
	if !w.Lower.Equal(day(-30)) {
		t.Errorf("lower = %v", w.Lower)
	}
}

func TestPlanNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	selected := time.Date(2025, 6, 29, 19, 0, 0, 0, loc) // same instant as day(0)

	w, _ := Plan(selected, 30, false, nil)
	if w.Upper.Location() != time.UTC {
		t.Errorf("upper location = %v", w.Upper.Location())
	}
	if !w.Upper.Equal(day(0)) {
		t.Errorf("upper = %v", w.Upper)
	}
}

func TestPlanFetchStart(t *testing.T) {
	cachedAt := func(d int) []measure.Sample {
		return []measure.Sample{{Time: day(d), Measurement: "tremor"}}
	}

	tests := []struct {
		name      string
		repullAll bool
		cached    []measure.Sample
		want      time.Time
	}{
		{"empty cache", false, nil, day(-30)},
		{"repull ignores cache", true, cachedAt(-5), day(-30)},
		{"cache newer than lower bound", false, cachedAt(-5), day(-5)},
		{"cache older than lower bound", false, cachedAt(-45), day(-30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fetchStart := Plan(day(0), 30, tt.repullAll, tt.cached)
			if !fetchStart.Equal(tt.want) {
				t.Errorf("fetchStart = %v, want %v", fetchStart, tt.want)
			}
		})
	}
}

func TestBatchStreamIDs(t *testing.T) {
	tests := []struct {
		n    int
		size int
		want []int // group sizes
	}{
		{0, 10, nil},
		{3, 10, []int{3}},
		{10, 10, []int{10}},
		{25, 10, []int{10, 10, 5}},
		{4, 1, []int{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		ids := make([]string, tt.n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}

		groups := batchStreamIDs(ids, tt.size)
		if len(groups) != len(tt.want) {
			t.Errorf("n=%d size=%d: got %d groups, want %d", tt.n, tt.size, len(groups), len(tt.want))
			continue
		}
		total := 0
		for i, g := range groups {
			if len(g) != tt.want[i] {
				t.Errorf("n=%d size=%d: group %d has %d ids, want %d", tt.n, tt.size, i, len(g), tt.want[i])
			}
			total += len(g)
		}
		if total != tt.n {
			t.Errorf("n=%d size=%d: groups cover %d ids", tt.n, tt.size, total)
		}
	}
}
