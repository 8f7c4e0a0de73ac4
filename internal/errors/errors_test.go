package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCategoryHelpers(t *testing.T) {
	tests := []struct {
		err        error
		validation bool
		cache      bool
		upstream   bool
	}{
		{ErrInvalidMeasurement, true, false, false},
		{ErrInvalidDate, true, false, false},
		{ErrInvalidPatientID, true, false, false},
		{ErrMissingField, true, false, false},
		{ErrCacheRead, false, true, false},
		{ErrCacheWrite, false, true, false},
		{ErrStreamResolution, false, false, true},
		{ErrBatchFetch, false, false, true},
		{ErrInternal, false, false, false},
	}

	for _, tt := range tests {
		wrapped := Wrapf(tt.err, "patient %s", "P1")
		if got := IsValidation(wrapped); got != tt.validation {
			t.Errorf("IsValidation(%v) = %v, want %v", tt.err, got, tt.validation)
		}
		if got := IsCacheError(wrapped); got != tt.cache {
			t.Errorf("IsCacheError(%v) = %v, want %v", tt.err, got, tt.cache)
		}
		if got := IsUpstream(wrapped); got != tt.upstream {
			t.Errorf("IsUpstream(%v) = %v, want %v", tt.err, got, tt.upstream)
		}
	}
}

func TestErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrInvalidMeasurement, http.StatusBadRequest},
		{Wrap(ErrInvalidDate, "selected date"), http.StatusBadRequest},
		{ErrStreamResolution, http.StatusBadGateway},
		{ErrBatchFetch, http.StatusBadGateway},
		{ErrCacheRead, http.StatusInternalServerError},
		{fmt.Errorf("who knows"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := ErrorToStatus(tt.err); got != tt.want {
			t.Errorf("ErrorToStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) != nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) != nil")
	}
}

func TestNewInvalidValue(t *testing.T) {
	err := NewInvalidValue("fetch.resample", "daily", "must be rawSamples or hourlyMean")
	if !Is(err, ErrInvalidConfig) {
		t.Errorf("error %v does not wrap ErrInvalidConfig", err)
	}
	if !IsValidation(err) {
		t.Error("invalid value not categorized as validation")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := NewValidationErrors()
	if errs.HasErrors() {
		t.Error("fresh collector has errors")
	}
	if errs.Err() != nil {
		t.Error("empty collector yields non-nil Err")
	}

	errs.AddMissing("api.token")
	errs.AddField("fetch.window_days", "must be positive")
	errs.Add(nil) // ignored

	if !errs.HasErrors() {
		t.Fatal("collector lost its errors")
	}
	err := errs.Err()
	if err == nil {
		t.Fatal("Err() = nil with errors present")
	}
	if !Is(err, ErrMissingField) {
		t.Errorf("error %v does not unwrap to the first error", err)
	}
	if got := ErrorToStatus(err); got != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", got)
	}
}
