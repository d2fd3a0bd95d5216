package dashboard

import (
	"context"
	"sort"
	"time"

	"soxmon/pkg/client"
	"soxmon/pkg/log"
	"soxmon/pkg/metrics"
	"soxmon/pkg/models"
)

// Loader assembles one consistent Snapshot per load cycle.
type Loader struct {
	client  *client.Client
	metrics *metrics.Metrics
	tasks   []task
	now     func() time.Time
}

// NewLoader creates a loader reading through c. m may be nil.
func NewLoader(c *client.Client, m *metrics.Metrics) *Loader {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Loader{
		client:  c,
		metrics: m,
		tasks:   snapshotTasks(),
		now:     time.Now,
	}
}

// LoadAll reads all five resources concurrently and waits for every one of
// them. If any read fails the whole cycle fails with *LoadError and no
// snapshot is returned. A read that ended the session contributes a nil
// field rather than a failure.
func (l *Loader) LoadAll(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()

	results := make([]taskResult, 0, len(l.tasks))
	for result := range executeTasks(ctx, l.client, l.tasks) {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	var loadErr *LoadError
	for _, result := range results {
		if result.err == nil {
			continue
		}
		if loadErr == nil {
			loadErr = &LoadError{}
		}
		loadErr.Failures = append(loadErr.Failures, &ResourceError{Resource: result.resource, Err: result.err})
		log.Debug().
			Err(result.err).
			Str("resource", string(result.resource)).
			Int("status", client.StatusCode(result.err)).
			Bool("request_failure", client.IsRequestFailure(result.err)).
			Msg("Dashboard read failed")
	}

	elapsed := time.Since(start)
	if loadErr != nil {
		l.metrics.ObserveCycle(loadErr, elapsed)
		log.Warn().Err(loadErr).Int("failed", len(loadErr.Failures)).Dur("elapsed", elapsed).Msg("Dashboard load failed")
		return nil, loadErr
	}

	snap := &models.Snapshot{LoadedAt: l.now()}
	for _, result := range results {
		result.apply(snap)
	}

	l.metrics.ObserveCycle(nil, elapsed)
	log.Debug().Dur("elapsed", elapsed).Msg("Dashboard loaded")
	return snap, nil
}
