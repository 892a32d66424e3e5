// Package dispatch implements the Worker Pool and Dispatcher components
// (spec §4.3/§4.4): fixed per-command pools of long-lived workers, and
// the admission/routing logic that turns an inbound request into a Task
// on one worker's private queue.
package dispatch

import (
	"context"
	"net"
	"time"

	"p01-compute-server/internal/registry"
	"p01-compute-server/internal/resp"
	"p01-compute-server/internal/state"
)

// Dispatcher owns every command's pool and the Shared State it dispatches
// against.
type Dispatcher struct {
	st    *state.State
	pools map[string]*pool
}

// New builds a Dispatcher with one pool per route registered in reg, each
// sized to the configured workers-per-command.
func New(st *state.State, reg *registry.Registry) *Dispatcher {
	d := &Dispatcher{st: st, pools: make(map[string]*pool)}
	workers := st.Config().WorkersPerCommand
	for _, route := range reg.Routes() {
		fn, _ := reg.Lookup(route)
		st.EnsureCommand(route, workers)
		d.pools[route] = newPool(route, fn, workers, st)
	}
	return d
}

// Start launches every pool's workers. Called once at startup after every
// route has been registered.
func (d *Dispatcher) Start() {
	for _, p := range d.pools {
		p.start()
	}
}

// Has reports whether route has a registered pool.
func (d *Dispatcher) Has(route string) bool {
	_, ok := d.pools[route]
	return ok
}

// Close closes every worker's queue, per spec §4.3 ("terminates only at
// process shutdown (queue closure)"). Workers mid-execution finish their
// current Task before observing the closed channel.
func (d *Dispatcher) Close() {
	for _, p := range d.pools {
		for _, q := range p.queues {
			close(q)
		}
	}
}

// Outcome is the immediate result of a Submit call: either the Task was
// handed to a worker's queue (Enqueued), or admission/routing failed and
// Result carries the response the caller must write itself.
type Outcome struct {
	Enqueued bool
	Result   resp.Result
}

// Submit implements spec §4.4: admission check, round-robin worker
// selection, Task construction and enqueue. conn is nil for a job-backed
// (asynchronous) submission — the worker records the outcome on the job
// instead of writing to a connection.
func (d *Dispatcher) Submit(route string, params map[string]string, conn net.Conn, reqID string, suppressBody bool, jobID string) Outcome {
	p, ok := d.pools[route]
	if !ok {
		return Outcome{Result: resp.NotFound("not_found", "unknown route")}
	}

	if !d.st.TryAdmit(route) {
		d.st.RecordRejection(route)
		cfg := d.st.Config()
		return Outcome{Result: resp.Backpressure(cfg.RetryAfterMs)}
	}

	d.st.RecordDispatch(route)
	idx := d.st.NextWorkerIndex(route)

	now := time.Now()
	task := &Task{
		Route:        route,
		Params:       params,
		Conn:         conn,
		ReqID:        reqID,
		Dispatched:   now,
		Deadline:     now.Add(d.st.Config().TaskTimeout()),
		JobID:        jobID,
		SuppressBody: suppressBody,
	}

	select {
	case p.queues[idx] <- task:
		return Outcome{Enqueued: true}
	default:
		// Queue saturated despite a granted admission slot — release it
		// back and report 500 per spec §4.4 ("If enqueue fails, reply 500").
		d.st.ReleaseAdmission(route)
		d.st.RecordCompletion(route, 0)
		return Outcome{Result: resp.IntErr("enqueue_failed", "worker queue is full")}
	}
}

// SubmitSync runs route's operation synchronously on the calling
// (front-end) goroutine under the same admission/bookkeeping rules as
// Submit, but without handing it to a worker's queue — used by the
// supplemented /simulate and /loadtest convenience routes, which are
// themselves built from ordinary dispatcher calls rather than queued
// work. ctx governs the deadline exactly as the worker pool would.
func (d *Dispatcher) SubmitSync(ctx context.Context, route string, params map[string]string) resp.Result {
	p, ok := d.pools[route]
	if !ok {
		return resp.NotFound("not_found", "unknown route")
	}
	if !d.st.TryAdmit(route) {
		d.st.RecordRejection(route)
		cfg := d.st.Config()
		return resp.Backpressure(cfg.RetryAfterMs)
	}
	d.st.RecordDispatch(route)

	start := time.Now()
	result := p.fn(ctx, params)
	d.st.RecordCompletion(route, float64(time.Since(start).Milliseconds()))
	d.st.ReleaseAdmission(route)
	if isTimeout(result) {
		d.st.RecordTimeout(route)
	}
	return result
}
