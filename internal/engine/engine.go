// Package engine implements the DAG status state machine described in
// spec.md §4.2: resolving dependencies into Ready/Blocked, completing jobs
// and propagating unblocks or cascaded cancellations, and reversing
// completion when an upstream job is reset. It never executes a job's
// command; it only transitions status rows in internal/store.
//
// Grounded in services/orchestrator/dag_engine.go's DAGEngine: the
// in-degree/Children bookkeeping (dagNode) and the skipChildren recursion
// shape survive, repurposed from "execute a worker pool" to "transition a
// status".
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/platform/natsbus"
	"github.com/NREL/torc-sub005/internal/store"
)

// ReadyNotifier is implemented by internal/claimcoord: the engine calls
// Notify after any transaction that moves a job to Ready, so a long-polling
// claim call wakes immediately instead of waiting out its timeout.
type ReadyNotifier interface {
	Notify(workflowID int64)
}

// Engine wires the store to the ready-signal notifier and the optional
// event bus.
type Engine struct {
	store    *store.Store
	notifier ReadyNotifier
	bus      *natsbus.Bus
	httpc    *http.Client
}

// New builds an Engine. notifier may be nil in tests that don't exercise
// claim long-polling; bus may be nil when TORC_NATS_URL is unset.
func New(s *store.Store, notifier ReadyNotifier, bus *natsbus.Bus) *Engine {
	return &Engine{store: s, notifier: notifier, bus: bus, httpc: &http.Client{Timeout: 5 * time.Second}}
}

func (e *Engine) notify(workflowID int64) {
	if e.notifier != nil {
		e.notifier.Notify(workflowID)
	}
}

// runAction POSTs a WorkflowAction's payload to its configured webhook URL.
// Best-effort: failures are logged, never returned, and never block the
// transaction that triggered the action.
func (e *Engine) runAction(ctx context.Context, action domain.WorkflowAction) {
	url, _ := action.Payload["webhook_url"].(string)
	if url == "" {
		return
	}
	body, err := json.Marshal(action.Payload)
	if err != nil {
		slog.Warn("marshal workflow action payload failed", "action_id", action.ID, "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("build workflow action request failed", "action_id", action.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpc.Do(req)
	if err != nil {
		slog.Warn("workflow action webhook failed", "action_id", action.ID, "url", url, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("workflow action webhook non-2xx", "action_id", action.ID, "url", url, "status", resp.StatusCode)
	}
}

func (e *Engine) publishEvent(ctx context.Context, workflowID int64, ev domain.Event) {
	if e.bus == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	e.bus.Publish(ctx, workflowID, data)
}
