// Package summary computes hourly statistics over a patient's window.
//
// Two paths produce the same bucket shape: a DuckDB query over the
// persisted parquet cache, and an in-memory fallback used before the
// first persist. Percentiles come from DDSketch.
package summary

import (
	"math"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/kinemetry/kinemetry/internal/measure"
)

// Bucket is one hour of aggregated percentage values.
type Bucket struct {
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
	Mean  float64   `json:"mean"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	P50   *float64  `json:"p50,omitempty"`
	P95   *float64  `json:"p95,omitempty"`
}

// hourAggregate maintains running statistics for a single hour bucket.
type hourAggregate struct {
	start time.Time
	count int64
	sum   float64
	min   float64
	max   float64

	sketch *ddsketch.DDSketch
}

func newHourAggregate(start time.Time) *hourAggregate {
	agg := &hourAggregate{
		start: start,
		min:   math.MaxFloat64,
		max:   -math.MaxFloat64,
	}
	// Default relative accuracy of 1%
	if sketch, err := ddsketch.NewDefaultDDSketch(0.01); err == nil {
		agg.sketch = sketch
	}
	return agg
}

func (a *hourAggregate) add(value float64) {
	a.count++
	a.sum += value
	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}
	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

func (a *hourAggregate) result() Bucket {
	b := Bucket{
		Start: a.start,
		Count: a.count,
	}
	if a.count > 0 {
		b.Mean = a.sum / float64(a.count)
		b.Min = a.min
		b.Max = a.max
	}
	if a.sketch != nil && a.count > 0 {
		if p50, err := a.sketch.GetValueAtQuantile(0.50); err == nil {
			b.P50 = &p50
		}
		if p95, err := a.sketch.GetValueAtQuantile(0.95); err == nil {
			b.P95 = &p95
		}
	}
	return b
}

// FromSamples aggregates samples into hourly buckets, ordered by hour.
// Samples without a percentage value are skipped.
func FromSamples(samples []measure.Sample) []Bucket {
	aggs := make(map[time.Time]*hourAggregate)
	for _, s := range samples {
		if s.Percentage == nil {
			continue
		}
		hour := s.Time.UTC().Truncate(time.Hour)
		agg, ok := aggs[hour]
		if !ok {
			agg = newHourAggregate(hour)
			aggs[hour] = agg
		}
		agg.add(*s.Percentage)
	}

	buckets := make([]Bucket, 0, len(aggs))
	for _, agg := range aggs {
		buckets = append(buckets, agg.result())
	}
	sortBuckets(buckets)
	return buckets
}

func sortBuckets(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
}

// HourlyMean resamples the window to one row per hour carrying the mean
// percentage. All other columns are dropped.
func HourlyMean(samples []measure.Sample) []measure.Sample {
	buckets := FromSamples(samples)
	out := make([]measure.Sample, 0, len(buckets))
	for _, b := range buckets {
		mean := b.Mean
		out = append(out, measure.Sample{
			Time:       b.Start,
			Percentage: &mean,
		})
	}
	return out
}
