package ingest

import "github.com/kinemetry/kinemetry/internal/measure"

// mergeSamples concatenates the cached and freshly fetched samples and
// collapses exact full-tuple duplicates. Concatenation is empty-safe on
// both sides; merging a set with itself is the identity.
func mergeSamples(cached, fresh []measure.Sample) []measure.Sample {
	combined := make([]measure.Sample, 0, len(cached)+len(fresh))
	combined = append(combined, cached...)
	combined = append(combined, fresh...)
	return measure.Dedup(combined)
}

// windowResult filters the combined table down to the caller-facing view:
// rows inside the window, of the requested kind, optionally restricted to
// one severity label.
func windowResult(combined []measure.Sample, w measure.Window, kind measure.Kind, severity string) []measure.Sample {
	out := measure.FilterWindow(combined, w)
	out = measure.FilterKind(out, kind)
	if severity != "" {
		out = measure.FilterSeverity(out, severity)
	}
	return out
}
