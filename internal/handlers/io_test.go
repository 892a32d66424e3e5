package handlers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWordCountCountsLinesWordsBytes(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "hello world\nfoo\n")
	r := WordCountJSONCtx(context.Background(), map[string]string{"name": "doc.txt"})
	require.Equal(t, 200, r.Status)
	var out struct {
		Lines int64 `json:"lines"`
		Words int64 `json:"words"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.Body), &out))
	require.Equal(t, int64(2), out.Lines)
	require.Equal(t, int64(3), out.Words)
}

func TestWordCountMissingFileIs404(t *testing.T) {
	withTempDataDir(t)
	r := WordCountJSONCtx(context.Background(), map[string]string{"name": "nope.txt"})
	require.Equal(t, 404, r.Status)
}

func TestGrepFindsMatchingLines(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "apple\nbanana\napricot\n")
	r := GrepJSONCtx(context.Background(), map[string]string{"name": "doc.txt", "pattern": "^ap"})
	require.Equal(t, 200, r.Status)
	var out struct {
		Matches int      `json:"matches"`
		First   []string `json:"first"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.Body), &out))
	require.Equal(t, 2, out.Matches)
	require.Equal(t, []string{"apple", "apricot"}, out.First)
}

func TestGrepRejectsInvalidRegex(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "x\n")
	r := GrepJSONCtx(context.Background(), map[string]string{"name": "doc.txt", "pattern": "("})
	require.Equal(t, 400, r.Status)
}

func TestHashFileMatchesKnownDigest(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "abc")
	r := HashFileJSONCtx(context.Background(), map[string]string{"name": "doc.txt"})
	require.Equal(t, 200, r.Status)
	var out struct {
		Hex string `json:"hex"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.Body), &out))
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", out.Hex)
}

func TestHashFileRejectsUnsupportedAlgo(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "abc")
	r := HashFileJSONCtx(context.Background(), map[string]string{"name": "doc.txt", "algo": "md5"})
	require.Equal(t, 400, r.Status)
}

func TestSortFileQuickSortsIntegers(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "nums.txt", "5\n3\n1\n4\n2\n")
	r := SortFileJSONCtx(context.Background(), map[string]string{"name": "nums.txt", "algo": "quick"})
	require.Equal(t, 200, r.Status)
	b, err := os.ReadFile(filepath.Join(dir, "nums.txt.sorted"))
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n4\n5\n", string(b))
}

func TestSortFileMergeSortsAcrossChunks(t *testing.T) {
	dir := withTempDataDir(t)
	var sb strings.Builder
	for i := 20; i > 0; i-- {
		fmt.Fprintf(&sb, "%d\n", i)
	}
	writeTempFile(t, dir, "nums.txt", sb.String())
	r := SortFileJSONCtx(context.Background(), map[string]string{"name": "nums.txt", "algo": "merge", "chunksize": "5"})
	require.Equal(t, 200, r.Status)
	b, err := os.ReadFile(filepath.Join(dir, "nums.txt.sorted"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 20)
	for i, l := range lines {
		n, err := strconv.Atoi(l)
		require.NoError(t, err)
		require.Equal(t, i+1, n)
	}
}

func TestCompressGzipProducesDecodableOutput(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "hello compress")
	r := CompressJSONCtx(context.Background(), map[string]string{"name": "doc.txt"})
	require.Equal(t, 200, r.Status)

	f, err := os.Open(filepath.Join(dir, "doc.txt.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "hello compress", string(raw))
}

func TestCompressRejectsUnsupportedCodec(t *testing.T) {
	dir := withTempDataDir(t)
	writeTempFile(t, dir, "doc.txt", "x")
	r := CompressJSONCtx(context.Background(), map[string]string{"name": "doc.txt", "codec": "xz"})
	require.Equal(t, 400, r.Status)
}
