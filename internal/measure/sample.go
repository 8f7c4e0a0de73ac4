package measure

import (
	"sort"
	"time"
)

// Sample represents a single movement measurement for a patient.
// This is the primary data unit flowing through the fetch and cache layers.
type Sample struct {
	// Time is the measurement timestamp, always UTC-zoned in memory.
	Time time.Time

	// Measurement is the kind string ("tremor" or "dyskinesia").
	Measurement string

	// Severity is the upstream severity label (e.g. "none", "slight", "strong").
	Severity string

	// Percentage is the fraction of the measurement interval the movement
	// was present. Nil when the upstream stream carried no percentage value.
	Percentage *float64

	// DurationNs is the length of the measurement interval in nanoseconds.
	DurationNs int64

	// DeviceID identifies the wearable that produced the measurement.
	DeviceID string
}

// sampleKey is the comparable identity of a sample. Two samples with equal
// keys are duplicates regardless of where they were fetched from.
type sampleKey struct {
	timeNs        int64
	measurement   string
	severity      string
	percentage    float64
	hasPercentage bool
	durationNs    int64
	deviceID      string
}

func (s *Sample) key() sampleKey {
	k := sampleKey{
		timeNs:      s.Time.UnixNano(),
		measurement: s.Measurement,
		severity:    s.Severity,
		durationNs:  s.DurationNs,
		deviceID:    s.DeviceID,
	}
	if s.Percentage != nil {
		k.percentage = *s.Percentage
		k.hasPercentage = true
	}
	return k
}

// Window is a closed time interval [Lower, Upper].
type Window struct {
	Lower time.Time
	Upper time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Lower) && !t.After(w.Upper)
}

// Dedup removes duplicate samples, keeping the first occurrence of each
// full-tuple identity. Order of the survivors is preserved.
func Dedup(samples []Sample) []Sample {
	if len(samples) < 2 {
		return samples
	}

	seen := make(map[sampleKey]struct{}, len(samples))
	out := samples[:0:0]
	for _, s := range samples {
		k := s.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FilterWindow returns the samples whose timestamps fall inside w.
func FilterWindow(samples []Sample, w Window) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if w.Contains(s.Time) {
			out = append(out, s)
		}
	}
	return out
}

// FilterKind returns the samples of the given measurement kind.
func FilterKind(samples []Sample, k Kind) []Sample {
	want := k.String()
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Measurement == want {
			out = append(out, s)
		}
	}
	return out
}

// FilterSeverity returns the samples with the given severity label.
func FilterSeverity(samples []Sample, severity string) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Severity == severity {
			out = append(out, s)
		}
	}
	return out
}

// MaxTime returns the latest timestamp in samples, or the zero time when
// samples is empty.
func MaxTime(samples []Sample) time.Time {
	var max time.Time
	for _, s := range samples {
		if s.Time.After(max) {
			max = s.Time
		}
	}
	return max
}

// NormalizeUTC converts every sample timestamp to UTC in place and returns
// the slice. Zoned timestamps are converted; the instant is unchanged.
func NormalizeUTC(samples []Sample) []Sample {
	for i := range samples {
		samples[i].Time = samples[i].Time.UTC()
	}
	return samples
}

// SortByTime orders samples by ascending timestamp. Ties keep their
// relative order.
func SortByTime(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
}
