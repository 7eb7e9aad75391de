package dispatch

import (
	"encoding/json"
	"net/http"

	"github.com/NREL/torc-sub005/internal/auth"
	"github.com/NREL/torc-sub005/internal/claimcoord"
	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/exportimport"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// registerRoutes wires every entity's CRUD surface plus the engine
// operations (initialize, claim, complete, reset) onto mux, following
// services/orchestrator/main.go's one-mux-many-handlers layout.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /workflows", s.handleCreateWorkflow)
	mux.HandleFunc("GET /workflows", s.handleListWorkflows)
	mux.HandleFunc("GET /workflows/{workflow_id}", s.handleGetWorkflow)
	mux.HandleFunc("POST /workflows/{workflow_id}/archive", s.handleArchiveWorkflow)
	mux.HandleFunc("POST /workflows/{workflow_id}/initialize", s.handleInitializeWorkflow)

	mux.HandleFunc("POST /workflows/{workflow_id}/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /workflows/{workflow_id}/jobs", s.handleListJobs)
	mux.HandleFunc("GET /workflows/{workflow_id}/jobs/{job_id}", s.handleGetJob)
	mux.HandleFunc("POST /workflows/{workflow_id}/jobs/{job_id}/complete", s.handleCompleteJob)

	mux.HandleFunc("POST /workflows/{workflow_id}/reset", s.handleReset)
	mux.HandleFunc("POST /workflows/{workflow_id}/reset_failed", s.handleResetFailed)

	mux.HandleFunc("POST /workflows/{workflow_id}/resource_requirements", s.handleCreateResourceRequirements)
	mux.HandleFunc("GET /workflows/{workflow_id}/resource_requirements", s.handleListResourceRequirements)
	mux.HandleFunc("GET /workflows/{workflow_id}/resource_requirements/{id}", s.handleGetResourceRequirements)

	mux.HandleFunc("POST /workflows/{workflow_id}/files", s.handleCreateFile)
	mux.HandleFunc("GET /workflows/{workflow_id}/files", s.handleListFiles)
	mux.HandleFunc("GET /workflows/{workflow_id}/files/{id}", s.handleGetFile)
	mux.HandleFunc("GET /workflows/{workflow_id}/missing_files", s.handleMissingFiles)

	mux.HandleFunc("POST /workflows/{workflow_id}/user_data", s.handleCreateUserData)
	mux.HandleFunc("GET /workflows/{workflow_id}/user_data", s.handleListUserData)
	mux.HandleFunc("GET /workflows/{workflow_id}/user_data/{id}", s.handleGetUserData)
	mux.HandleFunc("GET /workflows/{workflow_id}/missing_user_data", s.handleMissingUserData)

	mux.HandleFunc("POST /workflows/{workflow_id}/schedulers", s.handleCreateScheduler)
	mux.HandleFunc("GET /workflows/{workflow_id}/schedulers", s.handleListSchedulers)
	mux.HandleFunc("GET /workflows/{workflow_id}/schedulers/{id}", s.handleGetScheduler)

	mux.HandleFunc("POST /workflows/{workflow_id}/compute_nodes", s.handleCreateComputeNode)
	mux.HandleFunc("GET /workflows/{workflow_id}/compute_nodes", s.handleListComputeNodes)
	mux.HandleFunc("GET /workflows/{workflow_id}/compute_nodes/{id}", s.handleGetComputeNode)

	mux.HandleFunc("POST /workflows/{workflow_id}/scheduled_compute_nodes", s.handleCreateScheduledComputeNode)
	mux.HandleFunc("GET /workflows/{workflow_id}/scheduled_compute_nodes", s.handleListScheduledComputeNodes)
	mux.HandleFunc("POST /workflows/{workflow_id}/scheduled_compute_nodes/{id}/status", s.handleReportAllocationStatus)
	mux.HandleFunc("GET /workflows/{workflow_id}/scheduled_compute_nodes/pending", s.handleHasPendingOrActiveAllocations)

	mux.HandleFunc("POST /workflows/{workflow_id}/claim_by_resources", s.handleClaimByResources)

	mux.HandleFunc("GET /workflows/{workflow_id}/events", s.handleListEvents)
	mux.HandleFunc("GET /workflows/{workflow_id}/jobs/{job_id}/results", s.handleListResultsForJob)

	mux.HandleFunc("POST /workflows/{workflow_id}/workflow_actions", s.handleCreateWorkflowAction)

	mux.HandleFunc("GET /workflows/{workflow_id}/export", s.handleExport)
	mux.HandleFunc("POST /import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Workflows ---

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	user := auth.UserFromContext(r.Context())
	wf, err := s.store.CreateWorkflow(r.Context(), body.Name, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	showAll := queryBool(r, "show_all_users")
	user := auth.UserFromContext(r.Context())
	filterUser := user
	if showAll {
		filterUser = ""
	}
	wfs, err := s.store.ListWorkflows(r.Context(), filterUser, showAll)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wfs)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	wf, err := s.store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleArchiveWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.ArchiveWorkflow(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (s *Server) handleInitializeWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.InitializeJobs(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "initialized"})
}

// --- Jobs ---

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var job domain.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	job.WorkflowID = workflowID
	created, err := s.store.CreateJob(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	jobs, err := s.store.ListJobs(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, err := pathInt64(r, "job_id")
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := s.store.GetJob(r.Context(), workflowID, jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, err := pathInt64(r, "job_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var result domain.Result
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	if err := s.engine.CompleteJob(r.Context(), workflowID, jobID, result); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Server) handleListResultsForJob(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, err := pathInt64(r, "job_id")
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := s.store.ListResultsForJob(r.Context(), workflowID, jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// --- Reset ---

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		JobIDs []int64 `json:"job_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	if err := s.engine.ResetJobs(r.Context(), workflowID, body.JobIDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleResetFailed(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	failedOnly := queryBool(r, "failed_only")
	if err := s.engine.ResetFailedJobs(r.Context(), workflowID, failedOnly); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// --- Resource requirements ---

func (s *Server) handleCreateResourceRequirements(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var rr domain.ResourceRequirements
	if err := json.NewDecoder(r.Body).Decode(&rr); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	rr.WorkflowID = workflowID
	created, err := s.store.CreateResourceRequirements(r.Context(), rr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListResourceRequirements(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	rrs, err := s.store.ListResourceRequirements(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rrs)
}

func (s *Server) handleGetResourceRequirements(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rr, err := s.store.GetResourceRequirements(r.Context(), workflowID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

// --- Files ---

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var f domain.File
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	f.WorkflowID = workflowID
	created, err := s.store.CreateFile(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	files, err := s.store.ListFiles(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := s.store.GetFile(r.Context(), workflowID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleMissingFiles(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	files, err := s.artifacts.ListRequiredExistingFiles(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// --- User data ---

func (s *Server) handleCreateUserData(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var d domain.UserData
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	d.WorkflowID = workflowID
	created, err := s.store.CreateUserData(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListUserData(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	blobs, err := s.store.ListUserData(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blobs)
}

func (s *Server) handleGetUserData(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.store.GetUserData(r.Context(), workflowID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleMissingUserData(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	blobs, err := s.artifacts.ListRequiredExistingUserData(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blobs)
}

// --- Schedulers ---

func (s *Server) handleCreateScheduler(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var sc domain.Scheduler
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	sc.WorkflowID = workflowID
	created, err := s.store.CreateScheduler(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSchedulers(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	scs, err := s.store.ListSchedulers(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scs)
}

func (s *Server) handleGetScheduler(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	sc, err := s.store.GetScheduler(r.Context(), workflowID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// --- Compute nodes ---

func (s *Server) handleCreateComputeNode(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var n domain.ComputeNode
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	n.WorkflowID = workflowID
	created, err := s.store.CreateComputeNode(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListComputeNodes(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	nodes, err := s.store.ListComputeNodes(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetComputeNode(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.store.GetComputeNode(r.Context(), workflowID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// --- Scheduled compute nodes (external batch allocations) ---

func (s *Server) handleCreateScheduledComputeNode(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var n domain.ScheduledComputeNode
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	n.WorkflowID = workflowID
	created, err := s.store.CreateScheduledComputeNode(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListScheduledComputeNodes(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	nodes, err := s.store.ListScheduledComputeNodes(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleReportAllocationStatus(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Status domain.ScheduledComputeNodeStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	n, err := s.tracker.ReportAllocationStatus(r.Context(), workflowID, id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleHasPendingOrActiveAllocations(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	pending, err := s.tracker.HasPendingOrActiveAllocations(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pending": pending})
}

// --- Claim ---

func (s *Server) handleClaimByResources(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		ComputeNodeID      int64                      `json:"compute_node_id"`
		SchedulerID        int64                      `json:"scheduler_id"`
		RequireSchedulerID int64                      `json:"require_scheduler_id"`
		Resources          domain.AvailableResources  `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	jobs, err := s.claims.Claim(r.Context(), claimcoord.Offer{
		WorkflowID:         workflowID,
		ComputeNodeID:      body.ComputeNodeID,
		SchedulerID:        body.SchedulerID,
		RequireSchedulerID: body.RequireSchedulerID,
		Resources:          body.Resources,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// --- Events & workflow actions ---

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := s.store.ListEvents(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateWorkflowAction(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var a domain.WorkflowAction
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	a.WorkflowID = workflowID
	created, err := s.store.CreateWorkflowAction(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// --- Export / import ---

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	workflowID, err := pathInt64(r, "workflow_id")
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.exporter.Export(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string                `json:"name"`
		Doc  exportimport.Document `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, torcerr.NewInvalidState("invalid request body: %v", err))
		return
	}
	user := auth.UserFromContext(r.Context())
	wf, err := s.exporter.Import(r.Context(), body.Doc, body.Name, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}
