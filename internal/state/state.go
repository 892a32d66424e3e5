// Package state implements the Shared State described in spec §3/§4.1: a
// single coarse-locked registry for counters, command stats, the jobs
// table, the worker roster and the pool directory. Every mutable field is
// read and written only while holding mu; cfg, pid, startedAt and the
// instrument set are fixed in New and read without it.
package state

import (
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"p01-compute-server/internal/config"
)

const ringCapacity = 128

// CommandStats is the per-command counter block described in spec §3.
type CommandStats struct {
	InFlight      int64     `json:"in_flight"`
	TotalRequests uint64    `json:"total_requests"`
	ring          [ringCapacity]float64
	ringLen       int
	ringPos       int
}

func (s *CommandStats) pushLatency(ms float64) {
	s.ring[s.ringPos] = ms
	s.ringPos = (s.ringPos + 1) % ringCapacity
	if s.ringLen < ringCapacity {
		s.ringLen++
	}
}

func (s *CommandStats) sortedLatencies() []float64 {
	out := make([]float64, s.ringLen)
	copy(out, s.ring[:s.ringLen])
	sort.Float64s(out)
	return out
}

// WorkerInfo describes one long-lived worker.
type WorkerInfo struct {
	Command string `json:"command"`
	ID      string `json:"id"`
	Busy    bool   `json:"busy"`
}

// poolEntry is the bookkeeping the dispatcher needs per registered command:
// how many workers it has (for round-robin modulo) and the next index to
// hand out.
type poolEntry struct {
	workerCount int
	rrCounter   uint64
}

// State is the Shared State. Exactly one instance exists per process.
type State struct {
	mu sync.Mutex

	startedAt        time.Time
	totalConnections uint64
	pid              int

	cfg config.Config

	workers      []*WorkerInfo
	workerByID   map[string]*WorkerInfo
	commandStats map[string]*CommandStats
	pools        map[string]*poolEntry
	sems         map[string]*semaphore.Weighted

	jobs      map[string]*Job
	jobSeq    uint64

	metrics *instruments
}

// New builds an empty Shared State bound to the given configuration.
func New(cfg config.Config) *State {
	return &State{
		startedAt:    time.Now(),
		pid:          os.Getpid(),
		cfg:          cfg,
		workerByID:   make(map[string]*WorkerInfo),
		commandStats: make(map[string]*CommandStats),
		pools:        make(map[string]*poolEntry),
		sems:         make(map[string]*semaphore.Weighted),
		jobs:         make(map[string]*Job),
		metrics:      newInstruments(),
	}
}

// Config returns the active configuration (read-only; set once at startup).
func (s *State) Config() config.Config { return s.cfg }

// Uptime returns time elapsed since the state was created.
func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func (s *State) PID() int { return s.pid }

func (s *State) IncConnections() {
	s.mu.Lock()
	s.totalConnections++
	s.mu.Unlock()
}

func (s *State) TotalConnections() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalConnections
}

// EnsureCommand idempotently registers the stats slot, pool directory
// entry and admission semaphore for cmd. workerCount is the number of
// workers that will be spawned for this command's pool.
func (s *State) EnsureCommand(cmd string, workerCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commandStats[cmd]; !ok {
		s.commandStats[cmd] = &CommandStats{}
	}
	if _, ok := s.pools[cmd]; !ok {
		s.pools[cmd] = &poolEntry{workerCount: workerCount}
	}
	if _, ok := s.sems[cmd]; !ok {
		s.sems[cmd] = semaphore.NewWeighted(int64(s.cfg.MaxInFlightPerCmd))
	}
}

// RegisterWorker adds a WorkerInfo entry for a newly spawned worker.
func (s *State) RegisterWorker(cmd, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &WorkerInfo{Command: cmd, ID: id}
	s.workers = append(s.workers, w)
	s.workerByID[id] = w
}

// SetWorkerBusy flips a worker's busy flag.
func (s *State) SetWorkerBusy(id string, busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workerByID[id]; ok {
		w.Busy = busy
	}
}

// NextWorkerIndex atomically reads and bumps the per-command round-robin
// counter, returning the target worker index modulo the pool size.
func (s *State) NextWorkerIndex(cmd string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[cmd]
	if !ok || p.workerCount == 0 {
		return 0
	}
	idx := int(p.rrCounter % uint64(p.workerCount))
	p.rrCounter++
	return idx
}

// TryAdmit attempts to acquire one admission slot for cmd (bounded
// in-flight backpressure gate). Returns false if the command is
// unregistered or saturated.
func (s *State) TryAdmit(cmd string) bool {
	s.mu.Lock()
	sem, ok := s.sems[cmd]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return sem.TryAcquire(1)
}

// ReleaseAdmission releases one admission slot for cmd.
func (s *State) ReleaseAdmission(cmd string) {
	s.mu.Lock()
	sem, ok := s.sems[cmd]
	s.mu.Unlock()
	if ok {
		sem.Release(1)
	}
}

// RecordDispatch increments in_flight and total_requests for cmd.
func (s *State) RecordDispatch(cmd string) {
	s.mu.Lock()
	st, ok := s.commandStats[cmd]
	if !ok {
		st = &CommandStats{}
		s.commandStats[cmd] = st
	}
	st.InFlight++
	st.TotalRequests++
	s.mu.Unlock()
	s.metrics.recordDispatch(cmd)
}

// RecordCompletion decrements in_flight (saturating at zero) and appends
// elapsedMs to the latency ring.
func (s *State) RecordCompletion(cmd string, elapsedMs float64) {
	s.mu.Lock()
	st, ok := s.commandStats[cmd]
	if !ok {
		st = &CommandStats{}
		s.commandStats[cmd] = st
	}
	if st.InFlight > 0 {
		st.InFlight--
	}
	st.pushLatency(elapsedMs)
	s.mu.Unlock()
	s.metrics.recordCompletion(cmd, elapsedMs)
}

// RecordRejection tallies a backpressure rejection for cmd.
func (s *State) RecordRejection(cmd string) { s.metrics.recordRejection(cmd) }

// RecordTimeout tallies a deadline-expiry timeout for cmd.
func (s *State) RecordTimeout(cmd string) { s.metrics.recordTimeout(cmd) }

// QueuesSnapshot returns a copy of {command -> in_flight}.
func (s *State) QueuesSnapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.commandStats))
	for cmd, st := range s.commandStats {
		out[cmd] = st.InFlight
	}
	return out
}

// LatencyStat is one row of the percentile table.
type LatencyStat struct {
	Count int64    `json:"count"`
	P50   *float64 `json:"p50,omitempty"`
	P95   *float64 `json:"p95,omitempty"`
	P99   *float64 `json:"p99,omitempty"`
}

// LatencySnapshot computes nearest-rank percentiles over each command's
// ring buffer: rank = round(p*(n-1)).
func (s *State) LatencySnapshot() map[string]LatencyStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]LatencyStat, len(s.commandStats))
	for cmd, st := range s.commandStats {
		ls := LatencyStat{Count: int64(st.ringLen)}
		if st.ringLen > 0 {
			sorted := st.sortedLatencies()
			ls.P50 = percentile(sorted, 0.50)
			ls.P95 = percentile(sorted, 0.95)
			ls.P99 = percentile(sorted, 0.99)
		}
		out[cmd] = ls
	}
	return out
}

func percentile(sorted []float64, p float64) *float64 {
	n := len(sorted)
	if n == 0 {
		return nil
	}
	rank := int(p*float64(n-1) + 0.5)
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	v := sorted[rank]
	return &v
}

// WorkersSnapshot returns per-command {total, busy}.
func (s *State) WorkersSnapshot() map[string]struct {
	Total int `json:"total"`
	Busy  int `json:"busy"`
} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct {
		Total int `json:"total"`
		Busy  int `json:"busy"`
	})
	for _, w := range s.workers {
		e := out[w.Command]
		e.Total++
		if w.Busy {
			e.Busy++
		}
		out[w.Command] = e
	}
	return out
}
