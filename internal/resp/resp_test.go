package resp

import (
	"strings"
	"testing"
)

func TestPlainOK_And_JSONOK(t *testing.T) {
	r1 := PlainOK("hola\n")
	if r1.Status != 200 || r1.JSON || r1.Body != "hola\n" || r1.Err != nil {
		t.Fatalf("PlainOK mismatch: %+v", r1)
	}
	if r1.Headers != nil {
		t.Fatalf("PlainOK must have nil Headers initially")
	}

	r2 := JSONOK(`{"ok":true}`)
	if r2.Status != 200 || !r2.JSON || r2.Body != `{"ok":true}` || r2.Err != nil {
		t.Fatalf("JSONOK mismatch: %+v", r2)
	}
}

func TestErrorConstructors_Status_JSON_Err(t *testing.T) {
	type tc struct {
		name   string
		got    Result
		status int
		code   string
		msg    string
	}

	tests := []tc{
		{"BadReq", BadReq("bad", "x"), 400, "bad", "x"},
		{"NotFound", NotFound("nf", "missing"), 404, "nf", "missing"},
		{"Conflict", Conflict("conf", "dup"), 409, "conf", "dup"},
		{"IntErr", IntErr("panic", "boom"), 500, "panic", "boom"},
		{"Unavail", Unavail("canceled", "ctx done"), 503, "canceled", "ctx done"},
	}

	for _, tt := range tests {
		if tt.got.Status != tt.status {
			t.Fatalf("%s status=%d want %d", tt.name, tt.got.Status, tt.status)
		}
		if !tt.got.JSON {
			t.Fatalf("%s JSON must be true", tt.name)
		}
		if tt.got.Err == nil || tt.got.Err.Code != tt.code || tt.got.Err.Message != tt.msg {
			t.Fatalf("%s Err mismatch: %+v", tt.name, tt.got.Err)
		}
		if tt.got.Body != "" {
			t.Fatalf("%s Body should be empty when Err!=nil", tt.name)
		}
	}
}

func TestTimeout_ShapesSpecBody(t *testing.T) {
	r := Timeout()
	if r.Status != 503 || r.Err == nil || r.Err.Code != "timeout" {
		t.Fatalf("Timeout mismatch: %+v", r)
	}
}

func TestNotCancelable_ShapesLiteralStatusBody(t *testing.T) {
	r := NotCancelable()
	if r.Status != 409 || !r.JSON || r.Err != nil {
		t.Fatalf("NotCancelable mismatch: %+v", r)
	}
	if r.Body != `{"status":"not_cancelable"}` {
		t.Fatalf("body=%q want literal spec shape", r.Body)
	}
}

func TestBackpressure_BodyAndHeader(t *testing.T) {
	r := Backpressure(250)
	if r.Status != 503 {
		t.Fatalf("status=%d want 503", r.Status)
	}
	if !strings.Contains(r.Body, `"error":"backpressure"`) || !strings.Contains(r.Body, `"retry_after_ms":250`) {
		t.Fatalf("body missing fields: %s", r.Body)
	}
	if r.Headers["Retry-After"] != "1" {
		t.Fatalf("Retry-After=%q want 1", r.Headers["Retry-After"])
	}
}

func TestBackpressure_RetryAfterRoundsUp(t *testing.T) {
	r := Backpressure(1500)
	if r.Headers["Retry-After"] != "2" {
		t.Fatalf("Retry-After=%q want 2", r.Headers["Retry-After"])
	}
}

func TestWithHeader_CreatesMap_WhenNil_AndKeepsFields(t *testing.T) {
	base := PlainOK("hi")
	with := base.WithHeader("X-Trace", "t-1")

	if base.Headers != nil {
		t.Fatalf("original Headers must remain nil")
	}
	if with.Headers == nil || with.Headers["X-Trace"] != "t-1" {
		t.Fatalf("missing header in copy: %+v", with.Headers)
	}
	if with.Status != base.Status || with.Body != base.Body || with.JSON != base.JSON {
		t.Fatalf("fields changed unexpectedly: base=%+v with=%+v", base, with)
	}
}

func TestWithHeader_DoesNotMutateOriginalMap(t *testing.T) {
	r1 := JSONOK(`{}`).WithHeader("A", "1")
	r2 := r1.WithHeader("B", "2")

	if _, ok := r1.Headers["B"]; ok {
		t.Fatalf("WithHeader must copy, not mutate the source map: r1=%+v", r1.Headers)
	}
	if r2.Headers["A"] != "1" || r2.Headers["B"] != "2" {
		t.Fatalf("r2 missing expected headers: %+v", r2.Headers)
	}
}
