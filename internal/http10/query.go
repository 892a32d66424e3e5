package http10

import "strings"

// SplitTarget splits a request target ("/path?a=1&b=2") into path and query
// string on the first "?".
func SplitTarget(target string) (path, query string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// ParseQuery decodes a query string into a flat map: split on "&", each
// piece split on the first "=", "+" decoded to space, then percent-decoded.
// A repeated key keeps the last occurrence.
func ParseQuery(q string) map[string]string {
	out := make(map[string]string)
	if q == "" {
		return out
	}
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		out[decodeComponent(k)] = decodeComponent(v)
	}
	return out
}

// decodeComponent applies the application/x-www-form-urlencoded rules:
// '+' becomes a space, then %XX escapes are percent-decoded. Malformed
// escapes are passed through literally rather than rejected — the caller
// validates individual parameter values, not query-string well-formedness.
func decodeComponent(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
