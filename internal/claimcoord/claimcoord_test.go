package claimcoord

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "torc.db")
	s, err := store.Open(dbPath, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func readyJob(t *testing.T, s *store.Store, wfID int64, name string, priority int, rrID int64) domain.Job {
	t.Helper()
	ctx := context.Background()
	j, err := s.CreateJob(ctx, domain.Job{
		WorkflowID:             wfID,
		Name:                   name,
		Command:                "true",
		Priority:               priority,
		ResourceRequirementsID: rrID,
	})
	require.NoError(t, err)
	require.NoError(t, s.UpdateJobStatuses(ctx, wfID, map[int64]domain.JobStatus{j.ID: domain.StatusReady}))
	j.Status = domain.StatusReady
	return j
}

func TestClaim_OrdersByPriorityDescThenIDAsc(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	rr, err := s.CreateResourceRequirements(ctx, domain.ResourceRequirements{WorkflowID: wf.ID, Name: "small", NumCPUs: 1, Memory: "1GB", NumNodes: 1})
	require.NoError(t, err)

	low := readyJob(t, s, wf.ID, "low", 0, rr.ID)
	high := readyJob(t, s, wf.ID, "high", 10, rr.ID)
	_ = low

	c := New(s, 50*time.Millisecond)
	claimed, err := c.Claim(ctx, Offer{
		WorkflowID: wf.ID,
		Resources:  domain.AvailableResources{NumCPUs: 1, MemoryGB: 1, NumNodes: 1},
	})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, high.ID, claimed[0].ID)
}

func TestClaim_GreedyBinFitRespectsShrinkingPool(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	rr, err := s.CreateResourceRequirements(ctx, domain.ResourceRequirements{WorkflowID: wf.ID, Name: "unit", NumCPUs: 2, Memory: "2GB", NumNodes: 1})
	require.NoError(t, err)

	j1 := readyJob(t, s, wf.ID, "j1", 0, rr.ID)
	j2 := readyJob(t, s, wf.ID, "j2", 0, rr.ID)
	j3 := readyJob(t, s, wf.ID, "j3", 0, rr.ID)

	c := New(s, 50*time.Millisecond)
	claimed, err := c.Claim(ctx, Offer{
		WorkflowID: wf.ID,
		Resources:  domain.AvailableResources{NumCPUs: 4, MemoryGB: 4, NumNodes: 2},
	})
	require.NoError(t, err)

	// Only two of the three 2-cpu jobs fit into a 4-cpu offer.
	require.Len(t, claimed, 2)
	ids := []int64{claimed[0].ID, claimed[1].ID}
	require.Contains(t, ids, j1.ID)
	require.Contains(t, ids, j2.ID)
	require.NotContains(t, ids, j3.ID)
}

func TestClaim_SchedulerIDFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	rr, err := s.CreateResourceRequirements(ctx, domain.ResourceRequirements{WorkflowID: wf.ID, Name: "unit", NumCPUs: 1, Memory: "1GB", NumNodes: 1})
	require.NoError(t, err)

	j, err := s.CreateJob(ctx, domain.Job{WorkflowID: wf.ID, Name: "bound", Command: "true", ResourceRequirementsID: rr.ID, SchedulerID: 99})
	require.NoError(t, err)
	require.NoError(t, s.UpdateJobStatuses(ctx, wf.ID, map[int64]domain.JobStatus{j.ID: domain.StatusReady}))

	c := New(s, 50*time.Millisecond)
	claimed, err := c.Claim(ctx, Offer{
		WorkflowID:         wf.ID,
		Resources:          domain.AvailableResources{NumCPUs: 1, MemoryGB: 1, NumNodes: 1},
		RequireSchedulerID: 1,
	})
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestClaim_LongPollWakesOnNotify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	rr, err := s.CreateResourceRequirements(ctx, domain.ResourceRequirements{WorkflowID: wf.ID, Name: "unit", NumCPUs: 1, Memory: "1GB", NumNodes: 1})
	require.NoError(t, err)

	c := New(s, 2*time.Second)

	done := make(chan []domain.Job, 1)
	go func() {
		claimed, err := c.Claim(ctx, Offer{
			WorkflowID: wf.ID,
			Resources:  domain.AvailableResources{NumCPUs: 1, MemoryGB: 1, NumNodes: 1},
		})
		require.NoError(t, err)
		done <- claimed
	}()

	// Give the poller time to start waiting before a job becomes Ready.
	time.Sleep(20 * time.Millisecond)
	j, err := s.CreateJob(ctx, domain.Job{WorkflowID: wf.ID, Name: "late", Command: "true", ResourceRequirementsID: rr.ID})
	require.NoError(t, err)
	require.NoError(t, s.UpdateJobStatuses(ctx, wf.ID, map[int64]domain.JobStatus{j.ID: domain.StatusReady}))
	c.Notify(wf.ID)

	select {
	case claimed := <-done:
		require.Len(t, claimed, 1)
		require.Equal(t, j.ID, claimed[0].ID)
	case <-time.After(1 * time.Second):
		t.Fatal("Claim did not wake on Notify")
	}
}
