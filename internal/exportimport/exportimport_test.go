package exportimport

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

func TestExportImport_RoundTripRemapsIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wf, err := s.CreateWorkflow(ctx, "source", "alice")
	require.NoError(t, err)

	rr, err := s.CreateResourceRequirements(ctx, domain.ResourceRequirements{WorkflowID: wf.ID, Name: "small", NumCPUs: 2, Memory: "2GB", NumNodes: 1})
	require.NoError(t, err)

	j1, err := s.CreateJob(ctx, domain.Job{WorkflowID: wf.ID, Name: "a", Command: "true", ResourceRequirementsID: rr.ID})
	require.NoError(t, err)
	j2, err := s.CreateJob(ctx, domain.Job{
		WorkflowID: wf.ID, Name: "b", Command: "true",
		ResourceRequirementsID: rr.ID, DependsOnJobIDs: []int64{j1.ID},
	})
	require.NoError(t, err)

	svc := New(s)
	doc, err := svc.Export(ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, ExportVersion, doc.ExportVersion)
	require.Len(t, doc.Jobs, 2)

	imported, err := svc.Import(ctx, doc, "imported-copy", "bob")
	require.NoError(t, err)
	require.NotEqual(t, wf.ID, imported.ID)
	require.Equal(t, "bob", imported.User)

	newJobs, err := s.ListJobs(ctx, imported.ID)
	require.NoError(t, err)
	require.Len(t, newJobs, 2)

	var newA, newB domain.Job
	for _, j := range newJobs {
		switch j.Name {
		case "a":
			newA = j
		case "b":
			newB = j
		}
	}
	require.NotZero(t, newA.ID)
	require.NotZero(t, newB.ID)
	require.NotEqual(t, j1.ID, newA.ID, "imported ids must not collide with the source workflow's")
	require.Equal(t, []int64{newA.ID}, newB.DependsOnJobIDs)
	require.NotZero(t, newA.ResourceRequirementsID)
	require.NotEqual(t, rr.ID, newA.ResourceRequirementsID)

	newRRs, err := s.ListResourceRequirements(ctx, imported.ID)
	require.NoError(t, err)
	require.Len(t, newRRs, 1)
	require.Equal(t, newA.ResourceRequirementsID, newRRs[0].ID)

	// The source workflow's own jobs are untouched by the import.
	origJobs, err := s.ListJobs(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, origJobs, 2)
}

func TestImport_RejectsUnknownVersion(t *testing.T) {
	s := newTestStore(t)
	svc := New(s)

	_, err := svc.Import(context.Background(), Document{ExportVersion: "0.9"}, "x", "alice")
	require.Error(t, err)
}
