package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func withTempDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := DataDir
	DataDir = dir
	t.Cleanup(func() { DataDir = old })
	return dir
}

func TestSanitizePathRejectsEmptyName(t *testing.T) {
	withTempDataDir(t)
	_, ok := sanitizePath("")
	require.False(t, ok)
}

func TestSanitizePathRejectsDotDotSegment(t *testing.T) {
	withTempDataDir(t)
	_, ok := sanitizePath("../escape.txt")
	require.False(t, ok)
}

func TestSanitizePathAcceptsNameUnderDataDir(t *testing.T) {
	dir := withTempDataDir(t)
	abs, ok := sanitizePath("sub/file.txt")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "sub", "file.txt"), abs)
}

func TestCreateFileWritesContentRepeatedTimes(t *testing.T) {
	dir := withTempDataDir(t)
	r := CreateFile(context.Background(), map[string]string{"name": "out.txt", "content": "hi", "repeat": "3"})
	require.Equal(t, 200, r.Status)
	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi\nhi\nhi\n", string(b))
}

func TestCreateFileConflictFailReturns409(t *testing.T) {
	withTempDataDir(t)
	params := map[string]string{"name": "dup.txt", "content": "x"}
	require.Equal(t, 200, CreateFile(context.Background(), params).Status)
	r := CreateFile(context.Background(), params)
	require.Equal(t, 409, r.Status)
}

func TestCreateFileConflictOverwriteReplacesContent(t *testing.T) {
	dir := withTempDataDir(t)
	require.Equal(t, 200, CreateFile(context.Background(), map[string]string{"name": "dup.txt", "content": "old"}).Status)
	r := CreateFile(context.Background(), map[string]string{"name": "dup.txt", "content": "new", "conflict": "overwrite"})
	require.Equal(t, 200, r.Status)
	b, err := os.ReadFile(filepath.Join(dir, "dup.txt"))
	require.NoError(t, err)
	require.Equal(t, "new\n", string(b))
}

func TestCreateFileConflictAutorenamePicksNewName(t *testing.T) {
	withTempDataDir(t)
	require.Equal(t, 200, CreateFile(context.Background(), map[string]string{"name": "dup.txt", "content": "x"}).Status)
	r := CreateFile(context.Background(), map[string]string{"name": "dup.txt", "content": "y", "conflict": "autorename"})
	require.Equal(t, 200, r.Status)
	require.Contains(t, r.Body, "dup(1).txt")
}

func TestCreateFileRejectsRepeatAboveCap(t *testing.T) {
	withTempDataDir(t)
	r := CreateFile(context.Background(), map[string]string{"name": "a.txt", "content": "x", "repeat": "10001"})
	require.Equal(t, 400, r.Status)
}

func TestCreateFileRejectsBadName(t *testing.T) {
	withTempDataDir(t)
	r := CreateFile(context.Background(), map[string]string{"name": "../a.txt", "content": "x"})
	require.Equal(t, 400, r.Status)
}

func TestDeleteFileRemovesExistingFile(t *testing.T) {
	dir := withTempDataDir(t)
	require.Equal(t, 200, CreateFile(context.Background(), map[string]string{"name": "gone.txt", "content": "x"}).Status)
	r := DeleteFile(context.Background(), map[string]string{"name": "gone.txt"})
	require.Equal(t, 200, r.Status)
	_, err := os.Stat(filepath.Join(dir, "gone.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestDeleteFileMissingIs404(t *testing.T) {
	withTempDataDir(t)
	r := DeleteFile(context.Background(), map[string]string{"name": "missing.txt"})
	require.Equal(t, 404, r.Status)
}
