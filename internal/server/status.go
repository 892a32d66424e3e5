package server

import (
	"encoding/json"

	"p01-compute-server/internal/resp"
)

// status answers /status: a process-level snapshot (spec §4.1).
func (s *Server) status() resp.Result {
	out := map[string]any{
		"pid":         s.st.PID(),
		"uptime_ms":   s.st.Uptime().Milliseconds(),
		"connections": s.st.TotalConnections(),
		"queues":      s.st.QueuesSnapshot(),
		"workers":     s.st.WorkersSnapshot(),
	}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

// metricsSnapshot answers /metrics: process identity (pid, uptime, total
// connections — spec §4.7), per-command latency percentiles, queue/worker
// occupancy, the active config, and the job-table tally.
func (s *Server) metricsSnapshot() resp.Result {
	total, byStatus := s.st.JobTally()
	out := map[string]any{
		"pid":               s.st.PID(),
		"uptime_ms":         s.st.Uptime().Milliseconds(),
		"total_connections": s.st.TotalConnections(),
		"latency":           s.st.LatencySnapshot(),
		"queues":            s.st.QueuesSnapshot(),
		"workers":           s.st.WorkersSnapshot(),
		"jobs": map[string]any{
			"total":     total,
			"by_status": byStatus,
		},
		"config": s.st.Config(),
	}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}
