package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kinemetry/kinemetry/internal/errors"
	"github.com/kinemetry/kinemetry/internal/measure"
)

// batchStreamIDs partitions ids into groups of at most size.
func batchStreamIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var groups [][]string
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		groups = append(groups, ids[:n:n])
		ids = ids[n:]
	}
	return groups
}

// fetchBatches fans out one task per stream-ID group and joins them all.
// A failed group is logged and contributes zero rows; it never aborts its
// siblings. The returned samples are UTC-normalized and unordered across
// groups. Even a total failure yields an empty result, not an error.
func (s *Service) fetchBatches(ctx context.Context, streamIDs []string, start time.Time) []measure.Sample {
	groups := batchStreamIDs(streamIDs, s.opts.BatchSize)
	if len(groups) == 0 {
		return nil
	}

	log := requestLogger(ctx)
	results := make([][]measure.Sample, len(groups))
	var failures atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	if s.opts.Workers > 0 {
		g.SetLimit(s.opts.Workers)
	}

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			batchCtx := ctx
			if s.opts.BatchTimeout > 0 {
				var cancel context.CancelFunc
				batchCtx, cancel = context.WithTimeout(ctx, s.opts.BatchTimeout)
				defer cancel()
			}

			samples, err := s.source.FetchSamples(batchCtx, group, start)
			if err != nil {
				log.Error("batch fetch failed",
					"streams", len(group),
					"error", errors.Wrap(err, "batch fetch"))
				failures.Add(1)
				return nil
			}
			results[i] = measure.NormalizeUTC(samples)
			return nil
		})
	}
	g.Wait()

	if n := failures.Load(); n > 0 {
		log.Warn("serving partial data",
			"failed_batches", n,
			"total_batches", len(groups))
	}

	var out []measure.Sample
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
