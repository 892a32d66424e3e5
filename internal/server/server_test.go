package server

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"p01-compute-server/internal/config"
	"p01-compute-server/internal/dispatch"
	"p01-compute-server/internal/jobs"
	"p01-compute-server/internal/router"
	"p01-compute-server/internal/state"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{WorkersPerCommand: 2, MaxInFlightPerCmd: 8, RetryAfterMs: 100, TaskTimeoutMs: 5000}
	st := state.New(cfg)
	reg := router.Build()
	disp := dispatch.New(st, reg)
	disp.Start()
	jm := jobs.NewManager(st, reg, disp)
	return New(st, reg, disp, jm)
}

// roundTrip drives handleConn over an in-memory pipe and returns the raw
// response bytes, mirroring how a real TCP client would see the wire.
func roundTrip(t *testing.T, s *Server, requestLine string) string {
	t.Helper()
	client, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.handleConn(srv)
		close(done)
	}()

	_, err := client.Write([]byte(requestLine + "\r\n\r\n"))
	require.NoError(t, err)

	out, err := readAll(client)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleConn did not finish")
	}
	return out
}

func readAll(r net.Conn) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			return sb.String(), nil
		}
	}
}

func statusAndBody(raw string) (int, string) {
	lines := strings.SplitN(raw, "\r\n\r\n", 2)
	head := strings.Split(lines[0], "\r\n")
	parts := strings.SplitN(head[0], " ", 3)
	status := 0
	if len(parts) >= 2 {
		status, _ = readStatus(parts[1])
	}
	body := ""
	if len(lines) == 2 {
		body = lines[1]
	}
	return status, body
}

func readStatus(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func TestRootRoute(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET / HTTP/1.0")
	status, body := statusAndBody(raw)
	require.Equal(t, 200, status)
	require.Contains(t, body, "p01-compute-server")
}

func TestUnknownRouteIs404(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /nope HTTP/1.0")
	status, _ := statusAndBody(raw)
	require.Equal(t, 404, status)
}

func TestDispatchedRouteReturnsExpectedBody(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /reverse?text=abc HTTP/1.0")
	status, body := statusAndBody(raw)
	require.Equal(t, 200, status)
	require.Contains(t, body, "cba")
}

func TestStatusRouteReportsProcessSnapshot(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /status HTTP/1.0")
	status, body := statusAndBody(raw)
	require.Equal(t, 200, status)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	require.Contains(t, decoded, "pid")
	require.Contains(t, decoded, "uptime_ms")
}

func TestMetricsRouteReportsJobTally(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /metrics HTTP/1.0")
	status, body := statusAndBody(raw)
	require.Equal(t, 200, status)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	require.Contains(t, decoded, "jobs")
	require.Contains(t, decoded, "pid")
	require.Contains(t, decoded, "uptime_ms")
	require.Contains(t, decoded, "total_connections")
}

func TestJobsSubmitStatusResultFlow(t *testing.T) {
	s := testServer(t)
	raw := roundTrip(t, s, "GET /jobs/submit?task=reverse&text=hello HTTP/1.0")
	status, body := statusAndBody(raw)
	require.Equal(t, 200, status)
	var submitOut struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &submitOut))
	require.NotEmpty(t, submitOut.JobID)

	require.Eventually(t, func() bool {
		raw := roundTrip(t, s, "GET /jobs/status?id="+submitOut.JobID+" HTTP/1.0")
		status, body := statusAndBody(raw)
		if status != 200 {
			return false
		}
		var out struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal([]byte(body), &out)
		return out.Status == "done"
	}, time.Second, 5*time.Millisecond)

	raw = roundTrip(t, s, "GET /jobs/result?id="+submitOut.JobID+" HTTP/1.0")
	status, body = statusAndBody(raw)
	require.Equal(t, 200, status)
	require.Contains(t, body, "olleh")
}

func TestJobsCancelUnknownIdIs404(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /jobs/cancel?id=999999 HTTP/1.0")
	status, _ := statusAndBody(raw)
	require.Equal(t, 404, status)
}

func TestSimulateRejectsUnknownTask(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /simulate?task=bogus HTTP/1.0")
	status, _ := statusAndBody(raw)
	require.Equal(t, 400, status)
}

func TestLoadtestRunsRequestedTaskCount(t *testing.T) {
	raw := roundTrip(t, testServer(t), "GET /loadtest?tasks=3&sleep=0 HTTP/1.0")
	status, body := statusAndBody(raw)
	require.Equal(t, 200, status)
	require.Equal(t, "ok 3/3\n", body)
}

func TestUnsupportedMethodIs400(t *testing.T) {
	client, srv := net.Pipe()
	s := testServer(t)
	done := make(chan struct{})
	go func() {
		s.handleConn(srv)
		close(done)
	}()
	_, err := client.Write([]byte("POST /reverse?text=abc HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)
	raw, err := readAll(client)
	require.NoError(t, err)
	<-done
	status, _ := statusAndBody(raw)
	require.Equal(t, 400, status)
}
