package handlers

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"p01-compute-server/internal/resp"
)

// SleepTask backs the sleep pool: blocks for "seconds", honoring ctx's
// deadline so a task that overruns the worker's deadline returns the
// timeout body instead of sleeping past it.
func SleepTask(ctx context.Context, params map[string]string) resp.Result {
	sec, _ := strconv.Atoi(params["seconds"])
	if sec < 0 {
		sec = 0
	}
	timer := time.NewTimer(time.Duration(sec) * time.Second)
	defer timer.Stop()
	select {
	case <-timer.C:
		b, _ := json.Marshal(map[string]any{"slept_seconds": sec})
		return resp.JSONOK(string(b))
	case <-ctx.Done():
		return resp.Timeout()
	}
}

// SpinTask backs the spin pool: burns CPU in a tight loop for "seconds",
// polling ctx periodically so a deadline overrun is caught promptly.
func SpinTask(ctx context.Context, params map[string]string) resp.Result {
	sec, _ := strconv.Atoi(params["seconds"])
	if sec < 0 {
		sec = 0
	}
	end := time.Now().Add(time.Duration(sec) * time.Second)
	x := 0.0
	i := 0
	for time.Now().Before(end) {
		x += math.Sqrt(99991.0)
		if x > 1e9 {
			x = 0
		}
		i++
		if i&65535 == 0 {
			select {
			case <-ctx.Done():
				return resp.Timeout()
			default:
			}
		}
	}
	b, _ := json.Marshal(map[string]any{"spun_seconds": sec})
	return resp.JSONOK(string(b))
}
