package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"p01-compute-server/internal/http10"
	"p01-compute-server/internal/registry"
	"p01-compute-server/internal/resp"
	"p01-compute-server/internal/state"
)

// pool is the fixed-size worker set for one command (spec §4.3): one
// private channel per worker, selected by the dispatcher's round-robin
// counter — workers never race each other for work, and never know their
// own index beyond the queue they were handed at startup.
type pool struct {
	command string
	fn      registry.OperationFunc
	queues  []chan *Task
	st      *state.State
}

func newPool(command string, fn registry.OperationFunc, workerCount int, st *state.State) *pool {
	p := &pool{
		command: command,
		fn:      fn,
		queues:  make([]chan *Task, workerCount),
		st:      st,
	}
	capacity := st.Config().MaxInFlightPerCmd
	if capacity < 1 {
		capacity = 1
	}
	for i := range p.queues {
		p.queues[i] = make(chan *Task, capacity)
	}
	return p
}

// start spawns one goroutine per worker, each consuming its own queue
// FIFO until the queue is closed at shutdown.
func (p *pool) start() {
	for i, q := range p.queues {
		id := p.command + "#" + strconv.Itoa(i)
		p.st.RegisterWorker(p.command, id)
		go p.runWorker(id, q)
	}
}

func (p *pool) runWorker(workerID string, queue chan *Task) {
	for t := range queue {
		p.st.SetWorkerBusy(workerID, true)
		p.execute(workerID, t)
		p.st.SetWorkerBusy(workerID, false)
	}
}

// execute runs one Task to completion. A cancelled job-backed task is
// skipped entirely per spec §4.3/§5; otherwise the operation runs under a
// context bound to the task deadline, its completion is recorded, and the
// outcome either finalizes the job or is written to the owned connection.
func (p *pool) execute(workerID string, t *Task) {
	if t.JobID != "" {
		status, ok := p.st.MarkRunning(t.JobID)
		if ok && status == state.JobCancelled {
			p.st.RecordCompletion(p.command, 0)
			p.st.ReleaseAdmission(p.command)
			return
		}
	}

	ctx, cancel := context.WithDeadline(context.Background(), t.Deadline)
	start := time.Now()
	result := p.fn(ctx, t.Params)
	cancel()
	elapsed := time.Since(start)
	p.st.RecordCompletion(p.command, float64(elapsed.Milliseconds()))
	p.st.ReleaseAdmission(p.command)

	if isTimeout(result) {
		p.st.RecordTimeout(p.command)
	}

	if t.JobID != "" {
		finishJob(p.st, t.JobID, result)
		return
	}
	writeResult(t.Conn, t.ReqID, workerID, result, t.SuppressBody)
	_ = t.Conn.Close()
}

func isTimeout(r resp.Result) bool {
	return r.Err != nil && r.Err.Code == "timeout"
}

// finishJob records a completed task's outcome onto its Job entry per
// spec §7: success decodes the JSON body as the result value, failure
// (including a timeout) captures the error message in error_message.
func finishJob(st *state.State, jobID string, r resp.Result) {
	if r.Err != nil {
		st.FinishJob(jobID, false, nil, r.Err.Message)
		return
	}
	var result interface{}
	if r.JSON {
		_ = json.Unmarshal([]byte(r.Body), &result)
	} else {
		result = r.Body
	}
	st.FinishJob(jobID, true, result, "")
}

// writeResult renders a resp.Result onto conn as a framed HTTP/1.0
// response, attaching the request/worker trace headers.
func writeResult(conn io.Writer, reqID, workerID string, r resp.Result, suppressBody bool) {
	headers := make(map[string]string, len(r.Headers)+2)
	for k, v := range r.Headers {
		headers[k] = v
	}
	headers["X-Request-Id"] = reqID
	headers["X-Worker-Pid"] = workerID

	if r.Err != nil {
		body, _ := json.Marshal(r.Err)
		_ = http10.WriteJSON(conn, r.Status, string(body), headers, suppressBody)
		return
	}
	if r.JSON {
		_ = http10.WriteJSON(conn, r.Status, r.Body, headers, suppressBody)
		return
	}
	_ = http10.WritePlain(conn, r.Status, r.Body, headers, suppressBody)
}
