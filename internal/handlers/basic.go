// Package handlers implements the fixed catalog of compute commands (spec
// §2/§4.2). Each exported function matches registry.OperationFunc: it
// validates its parameters, does its work respecting ctx where the work
// can run long enough to matter, and returns a resp.Result. Handlers never
// know about HTTP framing, admission control, or worker pools — that is
// the dispatcher's job.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"p01-compute-server/internal/resp"
)

const (
	maxRandomCount = 1024
	maxFibonacciN  = 93
)

func timestampCore() string {
	now := time.Now().UTC()
	out := map[string]any{
		"unix": now.Unix(),
		"utc":  now.Format(time.RFC3339),
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func reverseCore(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	out := map[string]any{
		"input":    s,
		"reversed": string(r),
		"length":   len(r),
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func toUpperCore(s string) string {
	out := map[string]any{
		"input":  s,
		"result": strings.ToUpper(s),
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func hashCore(text string) string {
	sum := sha256.Sum256([]byte(text))
	b, _ := json.Marshal(map[string]string{
		"algo": "sha256",
		"hex":  hex.EncodeToString(sum[:]),
	})
	return string(b)
}

func randomCore(n, min, max int) string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	span := max - min + 1
	arr := make([]int, n)
	for i := 0; i < n; i++ {
		arr[i] = rng.Intn(span) + min
	}
	b, _ := json.Marshal(map[string]any{"values": arr})
	return string(b)
}

func fibonacciCore(n int) string {
	a, b := uint64(0), uint64(1)
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	body, _ := json.Marshal(map[string]any{"num": n, "value": a})
	return string(body)
}

// Help lists every route the server understands.
func Help(_ context.Context, _ map[string]string) resp.Result {
	return resp.PlainOK(strings.TrimSpace(`
/                      -> server name banner
/help                  -> this listing
/status                -> process snapshot (pid, uptime, connections, queues, workers)
/metrics               -> per-command metrics (latencies, queues, workers, counters, jobs)

/fibonacci?num=N       -> nth Fibonacci number (iterative), N<=93
/reverse?text=abc      -> reverses text
/toupper?text=abc      -> uppercases text
/random?count=n&min=a&max=b -> n uniform random integers, n<=1024
/timestamp             -> JSON with unix epoch/UTC
/hash?text=abc         -> SHA-256 hex digest

/createfile?name=FILE&content=txt&repeat=x[&conflict=fail|overwrite|autorename]
/deletefile?name=FILE

# pools / simulation
/sleep?seconds=s
/simulate?seconds=s&task=sleep|spin
/loadtest?tasks=n&sleep=s

# CPU-bound
/isprime?n=NUM[&method=division|miller-rabin]
/factor?n=NUM
/pi?digits=D[&method=spigot|chudnovsky]
/mandelbrot?width=W&height=H&max_iter=I
/matrixmul?size=N&seed=S

# IO-bound
/wordcount?name=FILE
/grep?name=FILE&pattern=REGEX
/hashfile?name=FILE[&algo=sha256]
/sortfile?name=FILE[&algo=merge|quick][&chunksize=N]
/compress?name=FILE[&codec=gzip]

/jobs/submit?task=TASK&<params>
/jobs/status?id=JOBID
/jobs/result?id=JOBID
/jobs/cancel?id=JOBID
/jobs/list
`) + "\n")
}

// Timestamp returns the current time as JSON {unix, utc}.
func Timestamp(_ context.Context, _ map[string]string) resp.Result {
	return resp.JSONOK(timestampCore())
}

// Reverse reverses ?text= rune-wise (UTF-8 safe).
func Reverse(_ context.Context, params map[string]string) resp.Result {
	txt, ok := params["text"]
	if !ok {
		return resp.BadReq("missing_param", "text is required")
	}
	return resp.JSONOK(reverseCore(txt))
}

// ToUpper uppercases ?text=.
func ToUpper(_ context.Context, params map[string]string) resp.Result {
	txt, ok := params["text"]
	if !ok {
		return resp.BadReq("missing_param", "text is required")
	}
	return resp.JSONOK(toUpperCore(txt))
}

// Hash returns the SHA-256 hex digest of ?text=.
func Hash(_ context.Context, params map[string]string) resp.Result {
	txt, ok := params["text"]
	if !ok {
		return resp.BadReq("missing_param", "text is required")
	}
	return resp.JSONOK(hashCore(txt))
}

// Random returns count uniform integers in [min, max]; count is capped at
// maxRandomCount per spec's resource-use bound.
func Random(_ context.Context, params map[string]string) resp.Result {
	cStr, ok := params["count"]
	if !ok {
		return resp.BadReq("missing_param", "count is required")
	}
	count, err := strconv.Atoi(cStr)
	if err != nil || count < 1 || count > maxRandomCount {
		return resp.BadReq("count", fmt.Sprintf("count must be integer in [1,%d]", maxRandomCount))
	}

	minStr, ok := params["min"]
	if !ok {
		return resp.BadReq("missing_param", "min is required")
	}
	min, err := strconv.Atoi(minStr)
	if err != nil {
		return resp.BadReq("min", "min must be integer")
	}

	maxStr, ok := params["max"]
	if !ok {
		return resp.BadReq("missing_param", "max is required")
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil {
		return resp.BadReq("max", "max must be integer")
	}
	if min > max {
		return resp.BadReq("range", "min must be <= max")
	}

	return resp.JSONOK(randomCore(count, min, max))
}

// Fibonacci returns the nth Fibonacci number as JSON {num, value}; n is
// capped at maxFibonacciN, beyond which uint64 overflow would silently wrap.
func Fibonacci(_ context.Context, params map[string]string) resp.Result {
	v, ok := params["num"]
	if !ok {
		return resp.BadReq("missing_param", "num is required")
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > maxFibonacciN {
		return resp.BadReq("num", fmt.Sprintf("num must be integer in [0,%d]", maxFibonacciN))
	}
	return resp.JSONOK(fibonacciCore(n))
}
