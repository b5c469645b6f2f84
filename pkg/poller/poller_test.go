package poller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/poller"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{})  {}
func (l logger) Errorf(format string, args ...interface{}) {}

// scriptedClient returns queued results in order, then repeats the last one.
type scriptedClient struct {
	mu      sync.Mutex
	results []result
	calls   int
	block   chan struct{} // when set, fetches wait for release or ctx
}

type result struct {
	report models.StatusReport
	err    error
}

func (c *scriptedClient) WorkflowStatus(ctx context.Context, id int64) (models.StatusReport, error) {
	c.mu.Lock()
	block := c.block
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	res := c.results[i]
	c.calls++
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.StatusReport{}, ctx.Err()
		}
	}
	return res.report, res.err
}

func reportWith(status models.WorkflowStatus, progress float64, nodes ...models.DAGNode) models.StatusReport {
	return models.StatusReport{
		ID:       1,
		Status:   status,
		Progress: progress,
		DAG:      models.DAGDefinition{Nodes: nodes},
	}
}

func newHarness(client *scriptedClient) (*poller.Poller, chan time.Time) {
	ticks := make(chan time.Time, 1)
	p := poller.New(client, logger{}, poller.WithTicker(func(d time.Duration) (<-chan time.Time, func()) {
		return ticks, func() {}
	}))
	return p, ticks
}

func waitUpdate(t *testing.T, sub *poller.Subscription) poller.Snapshot {
	t.Helper()
	select {
	case snap := <-sub.Updates():
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return poller.Snapshot{}
	}
}

func TestPoller(t *testing.T) {
	t.Run("InitialFetchThenTick", func(t *testing.T) {
		first := reportWith(models.RunningWorkflowStatus, 0.5,
			models.DAGNode{ID: "n1", Status: models.RunningNodeStatus},
			models.DAGNode{ID: "n2", Status: models.PendingNodeStatus, Dependencies: []string{"n1"}},
		)
		second := reportWith(models.RunningWorkflowStatus, 0.5,
			models.DAGNode{ID: "n1", Status: models.CompletedNodeStatus},
			models.DAGNode{ID: "n2", Status: models.RunningNodeStatus, Dependencies: []string{"n1"}},
		)
		client := &scriptedClient{results: []result{{report: first}, {report: second}}}
		p, ticks := newHarness(client)

		sub := p.Watch(1, poller.FastInterval)
		defer sub.Stop()

		snap := waitUpdate(t, sub)
		assert.Equal(t, poller.StateReady, snap.State)
		assert.Equal(t, first, snap.Report)

		ticks <- time.Now()
		snap = waitUpdate(t, sub)
		assert.Equal(t, poller.StateReady, snap.State)
		assert.False(t, snap.Stale)

		// the latest report replaces node state wholesale: exactly two
		// nodes, both matching the second response
		assert.Len(t, snap.Report.DAG.Nodes, 2)
		assert.Equal(t, models.CompletedNodeStatus, snap.Report.DAG.Nodes[0].Status)
		assert.Equal(t, models.RunningNodeStatus, snap.Report.DAG.Nodes[1].Status)
	})

	t.Run("StopSuppressesFurtherUpdates", func(t *testing.T) {
		client := &scriptedClient{results: []result{{report: reportWith(models.RunningWorkflowStatus, 0.25)}}}
		p, ticks := newHarness(client)

		sub := p.Watch(1, poller.DefaultInterval)
		snap := waitUpdate(t, sub)
		assert.Equal(t, poller.StateReady, snap.State)

		sub.Stop()
		select {
		case <-sub.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("poll loop did not exit after Stop")
		}

		ticks <- time.Now()
		select {
		case got := <-sub.Updates():
			t.Fatalf("unexpected snapshot after Stop: %+v", got)
		case <-time.After(100 * time.Millisecond):
		}
		assert.Equal(t, snap.Report, sub.Snapshot().Report)
	})

	t.Run("StopDuringInFlightFetch", func(t *testing.T) {
		block := make(chan struct{})
		client := &scriptedClient{
			results: []result{{report: reportWith(models.RunningWorkflowStatus, 0.5)}},
			block:   block,
		}
		p, _ := newHarness(client)

		sub := p.Watch(1, poller.DefaultInterval)
		// the initial fetch is parked on block; stop while in flight
		sub.Stop()
		close(block)

		select {
		case <-sub.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("poll loop did not exit")
		}
		assert.Equal(t, poller.StateLoading, sub.Snapshot().State)
		select {
		case got := <-sub.Updates():
			t.Fatalf("unexpected snapshot after Stop: %+v", got)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("ErrorBeforeFirstSuccess", func(t *testing.T) {
		client := &scriptedClient{results: []result{{err: errors.New("connection refused")}}}
		p, _ := newHarness(client)

		sub := p.Watch(1, poller.DefaultInterval)
		defer sub.Stop()

		snap := waitUpdate(t, sub)
		assert.Equal(t, poller.StateError, snap.State)
		assert.Error(t, snap.Err)
		assert.False(t, snap.Stale)
	})

	t.Run("ErrorAfterSuccessMarksStale", func(t *testing.T) {
		good := reportWith(models.RunningWorkflowStatus, 0.5, models.DAGNode{ID: "n1", Status: models.RunningNodeStatus})
		client := &scriptedClient{results: []result{{report: good}, {err: errors.New("boom")}}}
		p, ticks := newHarness(client)

		sub := p.Watch(1, poller.DefaultInterval)
		defer sub.Stop()

		snap := waitUpdate(t, sub)
		assert.Equal(t, poller.StateReady, snap.State)

		ticks <- time.Now()
		snap = waitUpdate(t, sub)
		// last good report stays visible, staleness and error are surfaced
		assert.Equal(t, poller.StateReady, snap.State)
		assert.True(t, snap.Stale)
		assert.Error(t, snap.Err)
		assert.Equal(t, good, snap.Report)
	})

	t.Run("RecoveryClearsStale", func(t *testing.T) {
		good := reportWith(models.RunningWorkflowStatus, 0.5)
		client := &scriptedClient{results: []result{{report: good}, {err: errors.New("boom")}, {report: good}}}
		p, ticks := newHarness(client)

		sub := p.Watch(1, poller.DefaultInterval)
		defer sub.Stop()

		waitUpdate(t, sub)
		ticks <- time.Now()
		snap := waitUpdate(t, sub)
		assert.True(t, snap.Stale)

		ticks <- time.Now()
		snap = waitUpdate(t, sub)
		assert.False(t, snap.Stale)
		assert.NoError(t, snap.Err)
	})
}
