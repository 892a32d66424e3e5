// Package jobs implements the Job Subsystem (spec §4.5): submit/status/
// result/cancel/list, all served synchronously on the front-end thread —
// they are O(lookup) against the jobs table in Shared State, never routed
// through a worker pool themselves. Only the task a job names runs on that
// task's own pool.
package jobs

import (
	"encoding/json"
	"strings"

	"p01-compute-server/internal/dispatch"
	"p01-compute-server/internal/registry"
	"p01-compute-server/internal/resp"
	"p01-compute-server/internal/state"
)

// Manager wires the jobs table in Shared State to the dispatcher that
// actually runs a job's task.
type Manager struct {
	st   *state.State
	reg  *registry.Registry
	disp *dispatch.Dispatcher
}

func NewManager(st *state.State, reg *registry.Registry, disp *dispatch.Dispatcher) *Manager {
	return &Manager{st: st, reg: reg, disp: disp}
}

// Submit implements /jobs/submit. params must carry "task" naming a
// registered route, with or without a leading slash; every other key is
// copied onto the job as task_params.
func (m *Manager) Submit(params map[string]string) resp.Result {
	task, ok := params["task"]
	if !ok || task == "" {
		return resp.BadReq("bad_request", "missing required parameter: task")
	}
	route := strings.TrimPrefix(task, "/")
	if !m.reg.Has(route) {
		return resp.NotFound("not_found", "unknown task: "+task)
	}

	taskParams := make(map[string]string, len(params))
	for k, v := range params {
		if k == "task" {
			continue
		}
		taskParams[k] = v
	}

	id := m.st.NextJobID()
	m.st.CreateJob(id, route, taskParams)

	out := m.disp.Submit(route, taskParams, nil, "", false, id)
	if !out.Enqueued {
		msg := "job could not be enqueued"
		if out.Result.Err != nil {
			msg = out.Result.Err.Message
		}
		m.st.FinishJob(id, false, nil, msg)
		return out.Result
	}

	return resp.JSONOK(`{"job_id":"` + id + `","status":"queued"}`)
}

// Status implements /jobs/status.
func (m *Manager) Status(id string) resp.Result {
	j, ok := m.st.GetJob(id)
	if !ok {
		return resp.NotFound("not_found", "unknown job id: "+id)
	}
	body, _ := json.Marshal(struct {
		JobID    string          `json:"job_id"`
		Status   state.JobStatus `json:"status"`
		Progress int             `json:"progress"`
		EtaMs    int64           `json:"eta_ms"`
	}{j.ID, j.Status, j.Progress, j.EtaMs})
	return resp.JSONOK(string(body))
}

// Result implements /jobs/result.
func (m *Manager) Result(id string) resp.Result {
	j, ok := m.st.GetJob(id)
	if !ok {
		return resp.NotFound("not_found", "unknown job id: "+id)
	}
	switch j.Status {
	case state.JobDone:
		body, _ := json.Marshal(struct {
			JobID  string      `json:"job_id"`
			Result interface{} `json:"result"`
		}{j.ID, j.Result})
		return resp.JSONOK(string(body))
	case state.JobFailed:
		return resp.IntErr("failed", j.ErrorMessage)
	default:
		return resp.Conflict("not_ready", "job is not in a resultable state: "+string(j.Status))
	}
}

// Cancel implements /jobs/cancel.
func (m *Manager) Cancel(id string) resp.Result {
	result, status := m.st.CancelJob(id)
	switch result {
	case state.CancelNotFound:
		return resp.NotFound("not_found", "unknown job id: "+id)
	case state.CancelNotCancelable:
		return resp.NotCancelable()
	default:
		body, _ := json.Marshal(struct {
			JobID  string          `json:"job_id"`
			Status state.JobStatus `json:"status"`
		}{id, status})
		return resp.JSONOK(string(body))
	}
}

// List implements /jobs/list — a supplemented, read-only enumeration of
// every tracked job's id/task/status, kept beyond the four operations
// spec §4.5 names.
func (m *Manager) List() resp.Result {
	all := m.st.ListJobs()
	type lite struct {
		JobID  string          `json:"job_id"`
		Task   string          `json:"task"`
		Status state.JobStatus `json:"status"`
	}
	out := make([]lite, 0, len(all))
	for _, j := range all {
		out = append(out, lite{JobID: j.ID, Task: j.TaskType, Status: j.Status})
	}
	body, _ := json.Marshal(out)
	return resp.JSONOK(string(body))
}

