package artifact

import (
	"context"
	"path/filepath"
	"testing"

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

func TestListRequiredExistingFiles_ExternalAndPendingProducer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	external, err := s.CreateFile(ctx, domain.File{WorkflowID: wf.ID, Name: "staged", Path: "/data/input.csv"})
	require.NoError(t, err)
	produced, err := s.CreateFile(ctx, domain.File{WorkflowID: wf.ID, Name: "produced", Path: "/data/output.csv"})
	require.NoError(t, err)

	producer, err := s.CreateJob(ctx, domain.Job{
		WorkflowID: wf.ID, Name: "producer", Command: "true",
		OutputFileIDs: []int64{produced.ID},
	})
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, domain.Job{
		WorkflowID: wf.ID, Name: "consumer", Command: "true",
		InputFileIDs: []int64{external.ID, produced.ID},
	})
	require.NoError(t, err)

	r := New(s)
	required, err := r.ListRequiredExistingFiles(ctx, wf.ID)
	require.NoError(t, err)

	ids := make(map[int64]bool, len(required))
	for _, f := range required {
		ids[f.ID] = true
	}
	require.True(t, ids[external.ID], "externally staged file should still be required")
	require.True(t, ids[produced.ID], "file from a not-yet-completed producer should still be required")

	// Once the producer completes, the produced file is no longer required.
	producer.Status = domain.StatusCompleted
	require.NoError(t, s.UpdateJobStatuses(ctx, wf.ID, map[int64]domain.JobStatus{producer.ID: domain.StatusCompleted}))

	required, err = r.ListRequiredExistingFiles(ctx, wf.ID)
	require.NoError(t, err)
	ids = make(map[int64]bool, len(required))
	for _, f := range required {
		ids[f.ID] = true
	}
	require.True(t, ids[external.ID])
	require.False(t, ids[produced.ID])
}

func TestListRequiredExistingUserData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wf, err := s.CreateWorkflow(ctx, "wf", "alice")
	require.NoError(t, err)

	blob, err := s.CreateUserData(ctx, domain.UserData{WorkflowID: wf.ID, Name: "config", Payload: map[string]any{"k": "v"}})
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, domain.Job{WorkflowID: wf.ID, Name: "consumer", Command: "true", InputUserDataIDs: []int64{blob.ID}})
	require.NoError(t, err)

	r := New(s)
	required, err := r.ListRequiredExistingUserData(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, required, 1)
	require.Equal(t, blob.ID, required[0].ID)
}
