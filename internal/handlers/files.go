package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"p01-compute-server/internal/resp"
)

// DataDir is the working root every file operation resolves names under.
// Set once at startup from config.Config.DataDir (empty string means the
// process working directory is the only non-temp root).
var DataDir string

const maxCreateFileRepeat = 10000

// sanitizePath implements the filesystem pre-sanitization spec §4.2
// requires: reject an empty name, reject any path segment equal to "..",
// resolve the candidate to an absolute path, and require that it land
// under one of the allowed roots (the process working directory, the
// system temp directory, or DataDir when configured).
func sanitizePath(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return "", false
		}
	}

	root := DataDir
	if root == "" {
		if cwd, err := os.Getwd(); err == nil {
			root = cwd
		} else {
			root = "."
		}
	}
	abs, err := filepath.Abs(filepath.Join(root, name))
	if err != nil {
		return "", false
	}

	roots := allowedRoots(root)
	for _, r := range roots {
		if r == "" {
			continue
		}
		if abs == r || strings.HasPrefix(abs, r+string(os.PathSeparator)) {
			return abs, true
		}
	}
	return "", false
}

func allowedRoots(dataDir string) []string {
	out := []string{dataDir}
	if cwd, err := os.Getwd(); err == nil {
		out = append(out, cwd)
	}
	if tmp, err := filepath.Abs(os.TempDir()); err == nil {
		out = append(out, tmp)
	}
	return out
}

// jsonNoEscape marshals v without escaping &, <, > — used for hint bodies
// that embed URLs.
func jsonNoEscape(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return strings.TrimRight(buf.String(), "\n")
}

// CreateFile writes a file under DataDir with conflict-resolution control
// (spec's supplemented createfile feature): conflict=fail|overwrite|autorename.
func CreateFile(_ context.Context, q map[string]string) resp.Result {
	rawName := q["name"]
	if rawName == "" {
		return resp.BadReq("missing_param", "name is required")
	}
	dst, ok := sanitizePath(rawName)
	if !ok {
		return resp.BadReq("bad_name", "invalid or out-of-root file name")
	}
	displayName := filepath.Base(dst)

	content := q["content"]
	rep := 1
	if v := q["repeat"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCreateFileRepeat {
			return resp.BadReq("repeat", fmt.Sprintf("repeat must be integer in [1,%d]", maxCreateFileRepeat))
		}
		rep = n
	}
	mode := q["conflict"]
	if mode == "" {
		mode = "fail"
	}
	if mode != "fail" && mode != "overwrite" && mode != "autorename" {
		return resp.BadReq("conflict", "use conflict=fail|overwrite|autorename")
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return resp.IntErr("fs_error", "cannot create parent directory")
	}

	start := time.Now()
	action := "created"
	renamedFrom := ""

	if _, err := os.Stat(dst); err == nil {
		switch mode {
		case "fail":
			sug := firstAvailableAppendCounter(dst)
			out := map[string]any{
				"error":                 "exists",
				"detail":                "file already exists",
				"file":                  displayName,
				"suggested_name":        filepath.Base(sug),
				"how_to_overwrite":      fmt.Sprintf("/createfile?name=%s&content=...&repeat=%d&conflict=overwrite", url.QueryEscape(displayName), rep),
				"how_to_autorename":     fmt.Sprintf("/createfile?name=%s&content=...&repeat=%d&conflict=autorename", url.QueryEscape(displayName), rep),
				"how_to_use_other_name": "/createfile?name=<other_name>&content=...&repeat=N",
			}
			return resp.Result{Status: 409, Body: jsonNoEscape(out), JSON: true}

		case "autorename":
			renamedFrom = displayName
			dst = firstAvailableAppendCounter(dst)
			displayName = filepath.Base(dst)
			action = "autorename"

		case "overwrite":
			action = "overwritten"
		}
	}

	f, err := os.Create(dst)
	if err != nil {
		return resp.IntErr("fs_error", "cannot create file")
	}
	defer f.Close()

	var written int64
	for i := 0; i < rep; i++ {
		if _, err := f.WriteString(content); err != nil {
			return resp.IntErr("fs_error", "write failed")
		}
		written += int64(len(content))
		if _, err := f.WriteString("\n"); err != nil {
			return resp.IntErr("fs_error", "write failed")
		}
		written++
	}

	out := map[string]any{
		"file":       displayName,
		"action":     action,
		"bytes":      written,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	if mode != "fail" {
		out["policy"] = mode
	}
	if action == "autorename" && renamedFrom != "" {
		out["renamed_from"] = renamedFrom
	}

	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

// DeleteFile removes a file under DataDir.
func DeleteFile(_ context.Context, q map[string]string) resp.Result {
	name := q["name"]
	if name == "" {
		return resp.BadReq("missing_param", "name is required")
	}
	path, ok := sanitizePath(name)
	if !ok {
		return resp.BadReq("bad_name", "invalid or out-of-root file name")
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return resp.NotFound("not_found", "file does not exist")
		}
		return resp.IntErr("fs_error", "cannot delete file")
	}
	b, _ := json.Marshal(map[string]any{"file": filepath.Base(path), "deleted": true})
	return resp.JSONOK(string(b))
}

// firstAvailableAppendCounter finds the first "base(k)ext" that does not
// exist yet, trying k=1,2,... against dst's actual directory.
func firstAvailableAppendCounter(dst string) string {
	dir := filepath.Dir(dst)
	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(filepath.Base(dst), ext)
	for k := 1; k < 1_000_000; k++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, k, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
	return filepath.Join(dir, base+"_copy"+ext)
}
