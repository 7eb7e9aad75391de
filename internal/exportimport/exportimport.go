// Package exportimport implements the two-pass ID-remapping export/import
// spec.md §9 describes: artifacts and schedulers are created (and their
// old_id -> new_id maps built) before jobs, so job cross-reference lists
// can be rewritten through the maps before insertion.
package exportimport

import (
	"context"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// ExportVersion is the only document version this importer accepts.
const ExportVersion = "1.0"

// Document is the full serializable snapshot of one workflow.
type Document struct {
	ExportVersion        string                        `json:"export_version"`
	Workflow             domain.Workflow               `json:"workflow"`
	ResourceRequirements []domain.ResourceRequirements `json:"resource_requirements"`
	Files                []domain.File                 `json:"files"`
	UserData             []domain.UserData             `json:"user_data"`
	Schedulers           []domain.Scheduler             `json:"schedulers"`
	Jobs                 []domain.Job                  `json:"jobs"`
	WorkflowActions      []domain.WorkflowAction        `json:"workflow_actions"`
}

// Service implements Export/Import against internal/store.
type Service struct {
	store *store.Store
}

// New builds a Service over s.
func New(s *store.Store) *Service { return &Service{store: s} }

// Export serializes workflowID's full entity graph, original ids intact;
// Import is what remaps them into a fresh workflow.
func (svc *Service) Export(ctx context.Context, workflowID int64) (Document, error) {
	wf, err := svc.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return Document{}, err
	}
	rrs, err := svc.store.ListResourceRequirements(ctx, workflowID)
	if err != nil {
		return Document{}, err
	}
	files, err := svc.store.ListFiles(ctx, workflowID)
	if err != nil {
		return Document{}, err
	}
	userData, err := svc.store.ListUserData(ctx, workflowID)
	if err != nil {
		return Document{}, err
	}
	schedulers, err := svc.store.ListSchedulers(ctx, workflowID)
	if err != nil {
		return Document{}, err
	}
	jobs, err := svc.store.ListJobs(ctx, workflowID)
	if err != nil {
		return Document{}, err
	}
	actions, err := svc.store.ListWorkflowActions(ctx, workflowID, domain.TriggerOnWorkflowStart)
	if err != nil {
		return Document{}, err
	}
	completeActions, err := svc.store.ListWorkflowActions(ctx, workflowID, domain.TriggerOnWorkflowComplete)
	if err != nil {
		return Document{}, err
	}
	actions = append(actions, completeActions...)

	return Document{
		ExportVersion:        ExportVersion,
		Workflow:             wf,
		ResourceRequirements: rrs,
		Files:                files,
		UserData:             userData,
		Schedulers:           schedulers,
		Jobs:                 jobs,
		WorkflowActions:      actions,
	}, nil
}

// idMaps accumulates old_id -> new_id translations per entity kind, built
// in the artifacts/schedulers pass and consumed while rewriting jobs.
type idMaps struct {
	resourceReqs map[int64]int64
	files        map[int64]int64
	userData     map[int64]int64
	schedulers   map[int64]int64
	jobs         map[int64]int64
}

// Import recreates doc's entity graph under a new workflow owned by user,
// remapping every id so the import never collides with existing data.
// Rejects any export_version other than ExportVersion — the document's
// version is not acceptable input in its current form, recorded as
// torcerr.InvalidState (see DESIGN.md's Open Question decision).
func (svc *Service) Import(ctx context.Context, doc Document, name, user string) (domain.Workflow, error) {
	if doc.ExportVersion != ExportVersion {
		return domain.Workflow{}, torcerr.NewInvalidState(
			"unsupported export_version %q, only %q is accepted", doc.ExportVersion, ExportVersion)
	}

	wf, err := svc.store.CreateWorkflow(ctx, name, user)
	if err != nil {
		return domain.Workflow{}, err
	}

	maps := idMaps{
		resourceReqs: make(map[int64]int64),
		files:        make(map[int64]int64),
		userData:     make(map[int64]int64),
		schedulers:   make(map[int64]int64),
		jobs:         make(map[int64]int64),
	}

	// Pass 1: artifacts and schedulers, before any job references them.
	for _, rr := range doc.ResourceRequirements {
		oldID := rr.ID
		rr.WorkflowID = wf.ID
		rr.ID = 0
		created, err := svc.store.CreateResourceRequirements(ctx, rr)
		if err != nil {
			return domain.Workflow{}, err
		}
		maps.resourceReqs[oldID] = created.ID
	}
	for _, f := range doc.Files {
		oldID := f.ID
		f.WorkflowID = wf.ID
		f.ID = 0
		created, err := svc.store.CreateFile(ctx, f)
		if err != nil {
			return domain.Workflow{}, err
		}
		maps.files[oldID] = created.ID
	}
	for _, d := range doc.UserData {
		oldID := d.ID
		d.WorkflowID = wf.ID
		d.ID = 0
		created, err := svc.store.CreateUserData(ctx, d)
		if err != nil {
			return domain.Workflow{}, err
		}
		maps.userData[oldID] = created.ID
	}
	for _, sc := range doc.Schedulers {
		oldID := sc.ID
		sc.WorkflowID = wf.ID
		sc.ID = 0
		created, err := svc.store.CreateScheduler(ctx, sc)
		if err != nil {
			return domain.Workflow{}, err
		}
		maps.schedulers[oldID] = created.ID
	}

	// Pass 2: jobs, with every cross-reference list rewritten through the
	// maps built above before insertion. Job-to-job dependency ids are
	// remapped in a dedicated sub-pass once every job has a new id.
	oldJobIDs := make([]int64, len(doc.Jobs))
	newJobs := make([]domain.Job, len(doc.Jobs))
	for i, j := range doc.Jobs {
		oldJobIDs[i] = j.ID
		j.WorkflowID = wf.ID
		j.ID = 0
		j.Status = domain.StatusUninitialized
		j.AttemptID = 0
		j.ComputeNodeID = 0
		j.ResourceRequirementsID = remap(maps.resourceReqs, j.ResourceRequirementsID)
		j.SchedulerID = remap(maps.schedulers, j.SchedulerID)
		j.InputFileIDs = remapAll(maps.files, j.InputFileIDs)
		j.OutputFileIDs = remapAll(maps.files, j.OutputFileIDs)
		j.InputUserDataIDs = remapAll(maps.userData, j.InputUserDataIDs)
		j.OutputUserDataIDs = remapAll(maps.userData, j.OutputUserDataIDs)
		created, err := svc.store.CreateJob(ctx, j)
		if err != nil {
			return domain.Workflow{}, err
		}
		newJobs[i] = created
		maps.jobs[oldJobIDs[i]] = created.ID
	}
	for i, j := range newJobs {
		j.DependsOnJobIDs = remapAll(maps.jobs, doc.Jobs[i].DependsOnJobIDs)
		if err := svc.store.UpdateJobDependencies(ctx, j); err != nil {
			return domain.Workflow{}, err
		}
	}

	for _, a := range doc.WorkflowActions {
		a.WorkflowID = wf.ID
		a.ID = 0
		if _, err := svc.store.CreateWorkflowAction(ctx, a); err != nil {
			return domain.Workflow{}, err
		}
	}

	return wf, nil
}

func remap(m map[int64]int64, oldID int64) int64 {
	if oldID == 0 {
		return 0
	}
	return m[oldID]
}

func remapAll(m map[int64]int64, oldIDs []int64) []int64 {
	if len(oldIDs) == 0 {
		return nil
	}
	out := make([]int64, 0, len(oldIDs))
	for _, id := range oldIDs {
		out = append(out, m[id])
	}
	return out
}
