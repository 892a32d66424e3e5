package server

import (
	"context"
	"fmt"
	"strconv"

	"p01-compute-server/internal/resp"
)

const maxLoadtestTasks = 10000

// simulate backs the supplemented /simulate convenience route: it is
// itself built from an ordinary dispatcher call (spec's job-subsystem
// text describes exactly this pattern) rather than queued work, so it
// runs synchronously on the front-end goroutine via SubmitSync.
func (s *Server) simulate(params map[string]string) resp.Result {
	task := params["task"]
	if task != "sleep" && task != "spin" {
		return resp.BadReq("task", "use task=sleep|spin")
	}
	taskParams := make(map[string]string, len(params))
	for k, v := range params {
		if k == "task" {
			continue
		}
		taskParams[k] = v
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.st.Config().TaskTimeout())
	defer cancel()
	return s.disp.SubmitSync(ctx, task, taskParams)
}

// loadtest fires tasks consecutive sleep tasks synchronously through the
// dispatcher and reports how many completed before the shared deadline.
func (s *Server) loadtest(params map[string]string) resp.Result {
	n, errN := strconv.Atoi(params["tasks"])
	sleepSec, errS := strconv.Atoi(params["sleep"])
	if errN != nil || n < 1 || n > maxLoadtestTasks {
		return resp.BadReq("tasks", fmt.Sprintf("tasks must be integer in [1,%d]", maxLoadtestTasks))
	}
	if errS != nil || sleepSec < 0 {
		return resp.BadReq("sleep", "sleep must be integer >= 0")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.st.Config().TaskTimeout())
	defer cancel()

	ok := 0
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return resp.PlainOK(fmt.Sprintf("ok %d/%d (deadline exceeded)\n", ok, n))
		default:
		}
		r := s.disp.SubmitSync(ctx, "sleep", map[string]string{"seconds": strconv.Itoa(sleepSec)})
		if r.Status == 200 {
			ok++
		}
	}
	return resp.PlainOK(fmt.Sprintf("ok %d/%d\n", ok, n))
}
