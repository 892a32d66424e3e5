// Package server implements the front-end accept loop (spec §4.1): each
// connection is parsed and classified, then either answered inline
// (status, metrics, help, jobs, simulate/loadtest) or handed off to the
// dispatcher, which takes sole ownership of the connection and writes the
// response itself once a worker finishes.
package server

import (
	"encoding/json"
	"net"

	"p01-compute-server/internal/dispatch"
	"p01-compute-server/internal/handlers"
	"p01-compute-server/internal/http10"
	"p01-compute-server/internal/jobs"
	"p01-compute-server/internal/registry"
	"p01-compute-server/internal/resp"
	"p01-compute-server/internal/state"
	"p01-compute-server/internal/util"
)

// Server owns every long-lived component wired together at startup.
type Server struct {
	st   *state.State
	reg  *registry.Registry
	disp *dispatch.Dispatcher
	jm   *jobs.Manager
}

// New assembles a Server from its already-constructed components; main
// builds them in dependency order (state, registry, dispatcher, jobs).
func New(st *state.State, reg *registry.Registry, disp *dispatch.Dispatcher, jm *jobs.Manager) *Server {
	return &Server{st: st, reg: reg, disp: disp, jm: jm}
}

// ListenAndServe accepts connections on addr, one goroutine per
// connection, until Accept itself fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.st.IncConnections()
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	reqID := util.NewReqID()

	req, err := http10.ReadRequest(conn)
	if err != nil {
		defer conn.Close()
		trace := map[string]string{"X-Request-Id": reqID}
		body, _ := json.Marshal(map[string]string{"error": "bad_request", "message": err.Error()})
		_ = http10.WriteJSON(conn, 400, string(body), trace, false)
		return
	}

	if req.Method != "GET" && req.Method != "HEAD" {
		defer conn.Close()
		trace := map[string]string{"X-Request-Id": reqID}
		body, _ := json.Marshal(map[string]string{"error": "method_not_allowed", "message": "only GET/HEAD are supported"})
		_ = http10.WriteJSON(conn, 400, string(body), trace, false)
		return
	}

	path, q := http10.SplitTarget(req.Target)
	params := http10.ParseQuery(q)
	suppressBody := req.Method == "HEAD"

	result, ownsConn := s.route(path, params, conn, reqID, suppressBody)
	if ownsConn {
		// A worker now owns conn and will write the response and close it.
		return
	}
	defer conn.Close()

	headers := map[string]string{"X-Request-Id": reqID}
	for k, v := range result.Headers {
		headers[k] = v
	}
	switch {
	case result.Err != nil:
		body, _ := json.Marshal(result.Err)
		_ = http10.WriteJSON(conn, result.Status, string(body), headers, suppressBody)
	case result.JSON:
		_ = http10.WriteJSON(conn, result.Status, result.Body, headers, suppressBody)
	default:
		_ = http10.WritePlain(conn, result.Status, result.Body, headers, suppressBody)
	}
}

// route resolves path to either an inline result (ownsConn=false, the
// caller writes the response itself) or hands conn off to the dispatcher
// (ownsConn=true) for asynchronous worker execution.
func (s *Server) route(path string, params map[string]string, conn net.Conn, reqID string, suppressBody bool) (resp.Result, bool) {
	switch path {
	case "/":
		return resp.PlainOK("p01-compute-server\n"), false
	case "/help":
		return handlers.Help(nil, nil), false
	case "/status":
		return s.status(), false
	case "/metrics":
		return s.metricsSnapshot(), false
	case "/simulate":
		return s.simulate(params), false
	case "/loadtest":
		return s.loadtest(params), false
	case "/jobs/submit":
		return s.jm.Submit(params), false
	case "/jobs/status":
		return s.jm.Status(params["id"]), false
	case "/jobs/result":
		return s.jm.Result(params["id"]), false
	case "/jobs/cancel":
		return s.jm.Cancel(params["id"]), false
	case "/jobs/list":
		return s.jm.List(), false
	}

	if len(path) < 2 || path[0] != '/' {
		return resp.NotFound("not_found", "unknown route: "+path), false
	}
	route := path[1:]
	if !s.reg.Has(route) {
		return resp.NotFound("not_found", "unknown route: "+path), false
	}

	outcome := s.disp.Submit(route, params, conn, reqID, suppressBody, "")
	if outcome.Enqueued {
		return resp.Result{}, true
	}
	return outcome.Result, false
}
