// Package cache persists per-patient measurement samples as parquet files.
//
// Each patient gets one file under the cache directory. Saves replace the
// whole file through a temp-file rename, so readers never observe a partial
// write. Timestamps are persisted as naive-UTC nanoseconds and re-zoned to
// UTC on load.
package cache

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	kerrors "github.com/kinemetry/kinemetry/internal/errors"
	"github.com/kinemetry/kinemetry/internal/measure"
)

// Options configures the parquet cache files.
type Options struct {
	// Compression algorithm
	Compression CompressionType
}

// CompressionType represents a parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default parquet options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionZstd,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// SampleRow represents a sample in parquet format. Timestamps are stored
// as naive-UTC nanoseconds so a cached row round-trips to the exact
// instant the upstream served and duplicates keep collapsing on re-fetch.
type SampleRow struct {
	TimeNs      int64    `parquet:"time_ns"`
	Measurement string   `parquet:"measurement,zstd"`
	Severity    string   `parquet:"severity,zstd"`
	Percentage  *float64 `parquet:"percentage,optional"`
	DurationNs  int64    `parquet:"measurement_duration_ns"`
	DeviceID    string   `parquet:"device_id,zstd"`
}

// SampleToRow converts a Sample to a SampleRow.
func SampleToRow(s *measure.Sample) SampleRow {
	return SampleRow{
		TimeNs:      s.Time.UTC().UnixNano(),
		Measurement: s.Measurement,
		Severity:    s.Severity,
		Percentage:  s.Percentage,
		DurationNs:  s.DurationNs,
		DeviceID:    s.DeviceID,
	}
}

// RowToSample converts a SampleRow to a Sample.
func RowToSample(r *SampleRow) measure.Sample {
	return measure.Sample{
		Time:        time.Unix(0, r.TimeNs).UTC(),
		Measurement: r.Measurement,
		Severity:    r.Severity,
		Percentage:  r.Percentage,
		DurationNs:  r.DurationNs,
		DeviceID:    r.DeviceID,
	}
}

// Store is a per-patient parquet sample cache.
type Store struct {
	dir  string
	opts Options
}

// NewStore creates a cache store rooted at dir.
func NewStore(dir string, opts Options) *Store {
	return &Store{dir: dir, opts: opts}
}

// Path returns the cache file path for a patient.
func (s *Store) Path(patientID string) string {
	return filepath.Join(s.dir, patientID+".parquet")
}

// Exists reports whether a cache file exists for the patient.
func (s *Store) Exists(patientID string) bool {
	_, err := os.Stat(s.Path(patientID))
	return err == nil
}

// Load reads all cached samples for a patient. A missing cache file is not
// an error and yields an empty result. Unreadable or corrupt files return
// an error wrapping ErrCacheRead.
func (s *Store) Load(patientID string) ([]measure.Sample, error) {
	path := s.Path(patientID)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kerrors.Wrapf(kerrors.ErrCacheRead, "open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, kerrors.Wrapf(kerrors.ErrCacheRead, "stat %s", path)
	}

	// Parse the file footer first so a truncated or corrupt cache file
	// surfaces as a read error instead of failing inside the reader.
	pf, err := parquet.OpenFile(f, info.Size(), parquet.ReadBufferSize(1024*1024))
	if err != nil {
		return nil, kerrors.Wrapf(kerrors.ErrCacheRead, "parse %s", path)
	}

	numRows := pf.NumRows()
	if numRows == 0 {
		return nil, nil
	}

	reader := parquet.NewGenericReader[SampleRow](pf)
	defer reader.Close()

	// Read may stop at row-group boundaries, so drain until EOF.
	rows := make([]SampleRow, numRows)
	read := 0
	for read < len(rows) {
		n, err := reader.Read(rows[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, kerrors.Wrapf(kerrors.ErrCacheRead, "read %s", path)
		}
	}

	samples := make([]measure.Sample, read)
	for i := 0; i < read; i++ {
		samples[i] = RowToSample(&rows[i])
	}
	return samples, nil
}

// Save writes the full sample set for a patient, replacing any previous
// cache file. The write goes through a temp file and rename. Failures
// return an error wrapping ErrCacheWrite.
func (s *Store) Save(patientID string, samples []measure.Sample) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return kerrors.Wrap(kerrors.ErrCacheWrite, "create cache dir")
	}

	path := s.Path(patientID)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return kerrors.Wrapf(kerrors.ErrCacheWrite, "create %s", tmp)
	}

	writer := parquet.NewGenericWriter[SampleRow](f,
		parquet.Compression(getCompression(s.opts.Compression)),
	)

	rows := make([]SampleRow, len(samples))
	for i := range samples {
		rows[i] = SampleToRow(&samples[i])
	}

	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			writer.Close()
			f.Close()
			os.Remove(tmp)
			return kerrors.Wrapf(kerrors.ErrCacheWrite, "write %s", tmp)
		}
	}

	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return kerrors.Wrapf(kerrors.ErrCacheWrite, "close %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return kerrors.Wrapf(kerrors.ErrCacheWrite, "close %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return kerrors.Wrapf(kerrors.ErrCacheWrite, "rename %s", tmp)
	}
	return nil
}
