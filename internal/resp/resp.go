// Package resp defines the uniform result contract every operation, job
// handler and inline route returns to the front-end writer.
package resp

import "strconv"

// ErrObj is the error payload serialized for any non-2xx JSON response.
type ErrObj struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// Result is the contract every operation function returns. If JSON is
// true, Body already holds a serialized JSON document. If Err is set the
// server writes {"error":...,"message":...} at Status instead of Body.
type Result struct {
	Status  int
	Body    string
	JSON    bool
	Err     *ErrObj
	Headers map[string]string
}

// WithHeader returns a copy of Result with an additional header.
func (r Result) WithHeader(k, v string) Result {
	cp := r
	cp.Headers = make(map[string]string, len(r.Headers)+1)
	for k2, v2 := range r.Headers {
		cp.Headers[k2] = v2
	}
	cp.Headers[k] = v
	return cp
}

func PlainOK(body string) Result     { return Result{Status: 200, Body: body, JSON: false} }
func JSONOK(json string) Result      { return Result{Status: 200, Body: json, JSON: true} }
func BadReq(code, msg string) Result { return Result{Status: 400, JSON: true, Err: &ErrObj{code, msg}} }
func NotFound(code, msg string) Result {
	return Result{Status: 404, JSON: true, Err: &ErrObj{code, msg}}
}
func Conflict(code, msg string) Result {
	return Result{Status: 409, JSON: true, Err: &ErrObj{code, msg}}
}
func IntErr(code, msg string) Result { return Result{Status: 500, JSON: true, Err: &ErrObj{code, msg}} }
func Unavail(code, msg string) Result {
	return Result{Status: 503, JSON: true, Err: &ErrObj{code, msg}}
}

// Timeout builds the spec-mandated {"error":"timeout","message":...} body.
func Timeout() Result {
	return Unavail("timeout", "request exceeded maximum execution time")
}

// NotCancelable builds the spec-mandated 409 body for /jobs/cancel against
// a job that is not in a cancelable state: the literal {"status":
// "not_cancelable"} — no "error"/"message" envelope, unlike every other
// 409/400/503 in this package.
func NotCancelable() Result {
	return Result{Status: 409, JSON: true, Body: `{"status":"not_cancelable"}`}
}

// Backpressure builds the {"error":"backpressure",...} body, carrying
// retry_after_ms in the JSON body and Retry-After (whole seconds, rounded
// up) as a header for the front-end to surface.
func Backpressure(retryAfterMs int) Result {
	body := `{"error":"backpressure","message":"too many in-flight requests for this command","retry_after_ms":` +
		strconv.Itoa(retryAfterMs) + `}`
	secs := (retryAfterMs + 999) / 1000
	if secs < 1 {
		secs = 1
	}
	return Result{
		Status:  503,
		JSON:    true,
		Body:    body,
		Headers: map[string]string{"Retry-After": strconv.Itoa(secs)},
	}
}
