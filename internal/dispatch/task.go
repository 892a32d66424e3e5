package dispatch

import (
	"net"
	"time"
)

// Task is one unit of work bound to a specific worker's queue, per
// spec §3. A synchronous Task owns Conn exclusively for its lifetime and
// the worker writes the response directly to it; an asynchronous
// (job-backed) Task has a nil Conn and its outcome is recorded onto the
// Job instead.
type Task struct {
	Route        string
	Params       map[string]string
	Conn         net.Conn
	ReqID        string
	Dispatched   time.Time
	Deadline     time.Time
	JobID        string
	SuppressBody bool
}
