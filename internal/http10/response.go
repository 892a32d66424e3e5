package http10

import (
	"fmt"
	"io"
	"strconv"
)

// WriteResponse writes a complete HTTP/1.0 response: status line, the
// given extra headers plus Content-Type/Content-Length/Connection, then
// the body. When suppressBody is true (a HEAD request) the body bytes are
// withheld but Content-Length is still computed as if they had been sent.
func WriteResponse(w io.Writer, status int, contentType, body string, extra map[string]string, suppressBody bool) error {
	headers := make(map[string]string, len(extra)+3)
	for k, v := range extra {
		headers[k] = v
	}
	headers["Content-Type"] = contentType
	headers["Content-Length"] = strconv.Itoa(len(body))
	headers["Connection"] = "close"

	if _, err := fmt.Fprintf(w, "HTTP/1.0 %d %s\r\n", status, statusText(status)); err != nil {
		return err
	}
	for k, v := range headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if suppressBody {
		return nil
	}
	_, err := io.WriteString(w, body)
	return err
}

// WriteJSON writes a JSON body with the spec's charset-qualified content type.
func WriteJSON(w io.Writer, status int, body string, extra map[string]string, suppressBody bool) error {
	return WriteResponse(w, status, "application/json; charset=utf-8", body, extra, suppressBody)
}

// WritePlain writes a text/plain body.
func WritePlain(w io.Writer, status int, body string, extra map[string]string, suppressBody bool) error {
	return WriteResponse(w, status, "text/plain; charset=utf-8", body, extra, suppressBody)
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 409:
		return "Conflict"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "OK"
	}
}
