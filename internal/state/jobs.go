package state

import (
	"strconv"
	"time"
)

// JobStatus is one of the five states a Job can occupy; see spec §3.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is the durable handle for one asynchronous task, per spec §3.
type Job struct {
	ID           string            `json:"id"`
	Status       JobStatus         `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Result       interface{}       `json:"result,omitempty"`
	Progress     int               `json:"progress"`
	EtaMs        int64             `json:"eta_ms"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	TaskType     string            `json:"task_type"`
	TaskParams   map[string]string `json:"task_params,omitempty"`
}

func (j *Job) clone() *Job {
	cp := *j
	if j.TaskParams != nil {
		cp.TaskParams = make(map[string]string, len(j.TaskParams))
		for k, v := range j.TaskParams {
			cp.TaskParams[k] = v
		}
	}
	return &cp
}

func isTerminal(s JobStatus) bool {
	return s == JobDone || s == JobFailed || s == JobCancelled
}

// NextJobID assigns and returns the next monotonic decimal job id.
func (s *State) NextJobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobSeq++
	return strconv.FormatUint(s.jobSeq, 10)
}

// CreateJob inserts a new queued job. The caller must have obtained id
// from NextJobID.
func (s *State) CreateJob(id, taskType string, params map[string]string) *Job {
	j := &Job{
		ID:         id,
		Status:     JobQueued,
		CreatedAt:  time.Now(),
		TaskType:   taskType,
		TaskParams: params,
	}
	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()
	return j.clone()
}

// GetJob returns a copy of the job, or false if unknown.
func (s *State) GetJob(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return j.clone(), true
}

// MarkRunning transitions a queued job to running, unless it was already
// cancelled — in which case the worker must skip execution. Returns the
// status the worker should act on.
func (s *State) MarkRunning(id string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return "", false
	}
	if j.Status == JobCancelled {
		return JobCancelled, true
	}
	now := time.Now()
	j.Status = JobRunning
	j.StartedAt = &now
	return JobRunning, true
}

// FinishJob finalizes a non-terminal job as done or failed. A job already
// in a terminal state (done, failed or cancelled) is left untouched.
func (s *State) FinishJob(id string, ok bool, result interface{}, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, found := s.jobs[id]
	if !found || isTerminal(j.Status) {
		return
	}
	now := time.Now()
	j.CompletedAt = &now
	if ok {
		j.Status = JobDone
		j.Result = result
	} else {
		j.Status = JobFailed
		j.ErrorMessage = errMsg
	}
}

// CancelResult is the outcome of a cancel request.
type CancelResult int

const (
	CancelNotFound CancelResult = iota
	CancelOK
	CancelNotCancelable
)

// CancelJob implements the cancel semantics of spec §4.5: queued -> cancelled
// (idempotent on an already-cancelled job); any other status is rejected.
func (s *State) CancelJob(id string) (CancelResult, JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return CancelNotFound, ""
	}
	if j.Status == JobCancelled {
		return CancelOK, JobCancelled
	}
	if j.Status != JobQueued {
		return CancelNotCancelable, j.Status
	}
	j.Status = JobCancelled
	j.Result = nil
	j.ErrorMessage = "job cancelled"
	now := time.Now()
	j.CompletedAt = &now
	return CancelOK, JobCancelled
}

// ListJobs returns copies of every job currently tracked.
func (s *State) ListJobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.clone())
	}
	return out
}

// LoadJobs replaces the jobs table wholesale (used at startup from the
// journal file) and raises jobSeq to the highest loaded id, so the next
// NextJobID returns that id plus one.
func (s *State) LoadJobs(jobs []*Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*Job, len(jobs))
	var maxID uint64
	for _, j := range jobs {
		s.jobs[j.ID] = j
		if n, err := strconv.ParseUint(j.ID, 10, 64); err == nil && n > maxID {
			maxID = n
		}
	}
	if maxID >= s.jobSeq {
		s.jobSeq = maxID
	}
}

// JobTally counts jobs per status, for /metrics.
func (s *State) JobTally() (total int, byStatus map[JobStatus]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStatus = map[JobStatus]int{
		JobQueued: 0, JobRunning: 0, JobDone: 0, JobFailed: 0, JobCancelled: 0,
	}
	for _, j := range s.jobs {
		byStatus[j.Status]++
	}
	return len(s.jobs), byStatus
}
