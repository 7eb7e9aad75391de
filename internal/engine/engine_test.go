package engine

import (
	"context"
	"path/filepath"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	notified []int64
}

func (n *recordingNotifier) Notify(workflowID int64) {
	n.notified = append(n.notified, workflowID)
}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *recordingNotifier) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "torc.db")
	s, err := store.Open(dbPath, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	notifier := &recordingNotifier{}
	return New(s, notifier, nil), s, notifier
}

func mustCreateJob(t *testing.T, s *store.Store, job domain.Job) domain.Job {
	t.Helper()
	j, err := s.CreateJob(context.Background(), job)
	require.NoError(t, err)
	return j
}

func TestInitializeJobs_LinearChainReadyThenBlocked(t *testing.T) {
	e, s, notifier := newTestEngine(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	j1 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "step1", Command: "true"})
	j2 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "step2", Command: "true", DependsOnJobIDs: []int64{j1.ID}})

	require.NoError(t, e.InitializeJobs(ctx, wf.ID))

	got1, err := s.GetJob(ctx, wf.ID, j1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, got1.Status)

	got2, err := s.GetJob(ctx, wf.ID, j2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusBlocked, got2.Status)

	require.NotEmpty(t, notifier.notified)

	wfAfter, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, wfAfter.RunID)
}

func TestInitializeJobs_RejectsCycle(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	j1 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "a", Command: "true"})
	j2 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "b", Command: "true", DependsOnJobIDs: []int64{j1.ID}})

	// Close the cycle: a depends on b.
	j1.DependsOnJobIDs = []int64{j2.ID}
	require.NoError(t, s.UpdateJobDependencies(ctx, j1))

	err = e.InitializeJobs(ctx, wf.ID)
	require.Error(t, err)
}

func TestCompleteJob_UnblocksDependent(t *testing.T) {
	e, s, notifier := newTestEngine(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	j1 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "a", Command: "true"})
	j2 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "b", Command: "true", DependsOnJobIDs: []int64{j1.ID}})
	require.NoError(t, e.InitializeJobs(ctx, wf.ID))

	// Simulate a claim moving j1 to Submitted.
	_, err = s.ClaimJobs(ctx, wf.ID, []int64{j1.ID}, 0, 0)
	require.NoError(t, err)

	notifier.notified = nil
	require.NoError(t, e.CompleteJob(ctx, wf.ID, j1.ID, domain.Result{Status: domain.StatusCompleted, ReturnCode: 0}))

	got2, err := s.GetJob(ctx, wf.ID, j2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, got2.Status)
	require.NotEmpty(t, notifier.notified)
}

func TestCompleteJob_CascadesCancelOnFailure(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	j1 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "a", Command: "true"})
	j2 := mustCreateJob(t, s, domain.Job{
		WorkflowID: wf.ID, Name: "b", Command: "true",
		DependsOnJobIDs: []int64{j1.ID}, CancelOnBlockingJobFailure: true,
	})
	require.NoError(t, e.InitializeJobs(ctx, wf.ID))

	_, err = s.ClaimJobs(ctx, wf.ID, []int64{j1.ID}, 0, 0)
	require.NoError(t, err)

	require.NoError(t, e.CompleteJob(ctx, wf.ID, j1.ID, domain.Result{Status: domain.StatusPendingFailed, ReturnCode: 1}))

	got2, err := s.GetJob(ctx, wf.ID, j2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCanceled, got2.Status)
}

func TestCompleteJob_RejectsUnclaimedJob(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)
	j1 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "a", Command: "true"})

	err = e.CompleteJob(ctx, wf.ID, j1.ID, domain.Result{Status: domain.StatusCompleted})
	require.Error(t, err)
}

func TestResetFailedJobs_ResetsFailedLeavesUpstreamCompleted(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	j1 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "a", Command: "true"})
	j2 := mustCreateJob(t, s, domain.Job{WorkflowID: wf.ID, Name: "b", Command: "true", DependsOnJobIDs: []int64{j1.ID}})
	require.NoError(t, e.InitializeJobs(ctx, wf.ID))

	_, err = s.ClaimJobs(ctx, wf.ID, []int64{j1.ID}, 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.CompleteJob(ctx, wf.ID, j1.ID, domain.Result{Status: domain.StatusCompleted, ReturnCode: 0}))

	_, err = s.ClaimJobs(ctx, wf.ID, []int64{j2.ID}, 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.CompleteJob(ctx, wf.ID, j2.ID, domain.Result{Status: domain.StatusPendingFailed, ReturnCode: 1}))

	require.NoError(t, e.ResetFailedJobs(ctx, wf.ID, true))

	// j1 is an upstream ancestor of the failed job, not a downstream
	// descendant, so it is left untouched by the reset cascade.
	got1, err := s.GetJob(ctx, wf.ID, j1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got1.Status)

	got2, err := s.GetJob(ctx, wf.ID, j2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusUninitialized, got2.Status)
}
