// Package runeapi is the client for the remote movement-measurement API.
//
// The client resolves a patient's measurement streams and pages through
// stream data in batches. It is constructed once at startup and injected
// into the ingest pipeline. All returned timestamps are UTC-zoned; the
// upstream's naive timestamps are interpreted as UTC.
package runeapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kinemetry/kinemetry/internal/logging"
	"github.com/kinemetry/kinemetry/internal/measure"
)

// Config configures the API client.
type Config struct {
	// BaseURL is the root URL of the measurement API.
	BaseURL string

	// Token is the bearer token sent with every request.
	Token string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Retries is the number of retry attempts after a failed request.
	Retries int

	// PageSize is the number of points requested per page.
	PageSize int
}

// StreamFilter selects the streams resolved for a patient.
type StreamFilter struct {
	PatientID    string
	Algorithm    string
	DeviceID     string // "all" matches every device
	StreamTypeID string
}

// Stream is one measurement stream of a patient.
type Stream struct {
	ID           string `json:"id"`
	PatientID    string `json:"patient_id"`
	DeviceID     string `json:"device_id"`
	Algorithm    string `json:"algorithm"`
	StreamTypeID string `json:"stream_type_id"`
}

// Client talks to the measurement API over HTTP.
type Client struct {
	http     *resty.Client
	pageSize int
	log      *slog.Logger
}

// New creates an API client.
func New(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10000
	}

	return &Client{
		http:     httpClient,
		pageSize: pageSize,
		log:      logging.Component("runeapi"),
	}
}

// streamsResponse is one page of the stream listing endpoint.
type streamsResponse struct {
	Streams       []Stream `json:"streams"`
	NextPageToken string   `json:"next_page_token"`
}

// ResolveStreams lists the streams matching the filter. Pagination is
// followed to exhaustion.
func (c *Client) ResolveStreams(ctx context.Context, f StreamFilter) ([]Stream, error) {
	var streams []Stream
	pageToken := ""

	for {
		params := map[string]string{
			"patient_id":     f.PatientID,
			"algorithm":      f.Algorithm,
			"stream_type_id": f.StreamTypeID,
		}
		if f.DeviceID != "" && f.DeviceID != "all" {
			params["device_id"] = f.DeviceID
		}
		if pageToken != "" {
			params["page_token"] = pageToken
		}

		var page streamsResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&page).
			Get("/v2/streams")
		if err != nil {
			return nil, fmt.Errorf("list streams: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list streams: %s: %s", resp.Status(), strings.TrimSpace(string(resp.Body())))
		}

		streams = append(streams, page.Streams...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.log.Debug("resolved streams",
		"patient_id", f.PatientID,
		"algorithm", f.Algorithm,
		"count", len(streams))
	return streams, nil
}

// point is one measurement row on the wire.
type point struct {
	Time        string   `json:"time"`
	Measurement string   `json:"measurement"`
	Severity    string   `json:"severity"`
	Percentage  *float64 `json:"percentage"`
	DurationNs  int64    `json:"measurement_duration_ns"`
	DeviceID    string   `json:"device_id"`
}

// pointsResponse is one page of the stream data endpoint.
type pointsResponse struct {
	Points        []point `json:"points"`
	NextPageToken string  `json:"next_page_token"`
}

// FetchSamples fetches all points of the given streams from start onward.
// Pagination is followed to exhaustion; timestamps are normalized to UTC.
func (c *Client) FetchSamples(ctx context.Context, streamIDs []string, start time.Time) ([]measure.Sample, error) {
	if len(streamIDs) == 0 {
		return nil, nil
	}

	var samples []measure.Sample
	pageToken := ""

	for {
		params := map[string]string{
			"stream_ids": strings.Join(streamIDs, ","),
			"start_time": start.UTC().Format(time.RFC3339Nano),
			"page_size":  fmt.Sprintf("%d", c.pageSize),
		}
		if pageToken != "" {
			params["page_token"] = pageToken
		}

		var page pointsResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&page).
			Get("/v2/streams/data")
		if err != nil {
			return nil, fmt.Errorf("fetch stream data: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch stream data: %s: %s", resp.Status(), strings.TrimSpace(string(resp.Body())))
		}

		for i := range page.Points {
			s, err := pointToSample(&page.Points[i])
			if err != nil {
				return nil, err
			}
			samples = append(samples, s)
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.log.Debug("fetched stream batch",
		"streams", len(streamIDs),
		"samples", len(samples))
	return samples, nil
}

// timeLayouts are the timestamp formats accepted from the upstream.
// Naive timestamps carry no zone and are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func pointToSample(p *point) (measure.Sample, error) {
	t, err := parseTime(p.Time)
	if err != nil {
		return measure.Sample{}, err
	}
	return measure.Sample{
		Time:        t,
		Measurement: p.Measurement,
		Severity:    p.Severity,
		Percentage:  p.Percentage,
		DurationNs:  p.DurationNs,
		DeviceID:    p.DeviceID,
	}, nil
}
