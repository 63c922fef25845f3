package remote

import (
	"accesslog-etl/internal/types"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPattern = `access\.log\.\d+(\.\d+)?(\.gz)?$`

var testExcluded = []string{"traffic.db", "sftp.log", "access.log.current"}

type fakeSession struct {
	files     map[string][]byte
	mtimes    map[string]time.Time
	downloads []string
	closed    bool
}

func (s *fakeSession) List(ctx context.Context) ([]types.RemoteFile, error) {
	var out []types.RemoteFile
	for name, data := range s.files {
		out = append(out, types.RemoteFile{Name: name, Size: int64(len(data)), ModTime: s.mtimes[name]})
	}
	return out, nil
}

func (s *fakeSession) Download(ctx context.Context, name string, dst io.Writer) (int64, error) {
	data, ok := s.files[name]
	if !ok {
		return 0, fmt.Errorf("no such file %s", name)
	}
	s.downloads = append(s.downloads, name)
	n, err := dst.Write(data)
	return int64(n), err
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func gzipped(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testConfig(dir string, mode types.Mode) *types.Config {
	cfg := &types.Config{}
	cfg.SFTP = types.SFTPConfig{Host: "example.com", Port: 22, User: "u"}
	cfg.Import.LocalDir = dir
	cfg.Import.Mode = mode
	cfg.Import.LogfilePattern = testPattern
	cfg.Import.ExcludedFiles = testExcluded
	return cfg
}

func newTestFetcher(t *testing.T, dir string, mode types.Mode, sess *fakeSession) *Fetcher {
	t.Helper()
	dial := func(ctx context.Context, cfg types.SFTPConfig) (Session, error) {
		return sess, nil
	}
	f, err := NewFetcher(testConfig(dir, mode), dial)
	require.NoError(t, err)
	return f
}

func TestNameFilter(t *testing.T) {
	f, err := NewNameFilter(testPattern, testExcluded)
	require.NoError(t, err)

	assert.True(t, f.Match("access.log.1"))
	assert.True(t, f.Match("access.log.20240101"))
	assert.True(t, f.Match("access.log.1.2.gz"))
	assert.False(t, f.Match("access.log.current"))
	assert.False(t, f.Match("traffic.db"))
	assert.False(t, f.Match("old.access.log.1"), "pattern is anchored at the start")
	assert.False(t, f.Match("access.log.1.bak"))

	assert.True(t, f.Importable("access.log.1"))
	assert.False(t, f.Importable("access.log.1.gz"))
}

func TestNewNameFilter_BadPattern(t *testing.T) {
	_, err := NewNameFilter(`access(`, nil)
	assert.Error(t, err)
}

func TestSelectFiles_Modes(t *testing.T) {
	filter, err := NewNameFilter(`access\.log\.\w+$`, []string{"access.log.current"})
	require.NoError(t, err)

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	files := []types.RemoteFile{
		{Name: "access.log.a", ModTime: t1},
		{Name: "access.log.b", ModTime: t1.Add(time.Hour)},
		{Name: "access.log.current", ModTime: t1.Add(2 * time.Hour)},
	}

	bulk := SelectFiles(files, filter, types.ModeBulk)
	assert.Equal(t, []string{"access.log.a", "access.log.b"}, names(bulk))

	daily := SelectFiles(files, filter, types.ModeDaily)
	assert.Equal(t, []string{"access.log.b"}, names(daily))

	assert.Empty(t, SelectFiles(files[2:], filter, types.ModeDaily))
}

func names(files []types.RemoteFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestFetch_Bulk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "keep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0600))

	now := time.Now()
	sess := &fakeSession{
		files: map[string][]byte{
			"access.log.1":       []byte("one\n"),
			"access.log.2.gz":    gzipped(t, "two\n"),
			"access.log.current": []byte("live\n"),
			"traffic.db":         []byte("db"),
			"sftp.log":           []byte("log"),
		},
		mtimes: map[string]time.Time{"access.log.1": now, "access.log.2.gz": now},
	}

	f := newTestFetcher(t, dir, types.ModeBulk, sess)
	files, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "access.log.1"),
		filepath.Join(dir, "access.log.2"),
	}, files)
	assert.ElementsMatch(t, []string{"access.log.1", "access.log.2.gz"}, sess.downloads)
	assert.True(t, sess.closed)

	data, err := os.ReadFile(filepath.Join(dir, "access.log.2"))
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))

	assert.NoFileExists(t, filepath.Join(dir, "stale.txt"))
	assert.DirExists(t, filepath.Join(dir, "keep"))
}

func TestFetch_Daily(t *testing.T) {
	dir := t.TempDir()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sess := &fakeSession{
		files: map[string][]byte{
			"access.log.1": []byte("old\n"),
			"access.log.2": []byte("new\n"),
		},
		mtimes: map[string]time.Time{
			"access.log.1": t1,
			"access.log.2": t1.Add(24 * time.Hour),
		},
	}

	f := newTestFetcher(t, dir, types.ModeDaily, sess)
	files, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "access.log.2")}, files)
	assert.Equal(t, []string{"access.log.2"}, sess.downloads)
}

func TestFetch_ConnectFailure(t *testing.T) {
	dial := func(ctx context.Context, cfg types.SFTPConfig) (Session, error) {
		return nil, fmt.Errorf("%w: auth refused", ErrConnect)
	}
	f, err := NewFetcher(testConfig(t.TempDir(), types.ModeBulk), dial)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrConnect))
}

func TestFetchOne_SkipsSameSize(t *testing.T) {
	dir := t.TempDir()
	sess := &fakeSession{files: map[string][]byte{"access.log.1": []byte("remote\n")}}
	f := newTestFetcher(t, dir, types.ModeBulk, sess)

	local := filepath.Join(dir, "access.log.1")

	// same size: reused as is
	require.NoError(t, os.WriteFile(local, []byte("local!\n"), 0600))
	require.NoError(t, f.fetchOne(context.Background(), sess, types.RemoteFile{Name: "access.log.1", Size: 7}))
	assert.Empty(t, sess.downloads)

	// truncated copy: downloaded again
	require.NoError(t, os.WriteFile(local, []byte("loc"), 0600))
	require.NoError(t, f.fetchOne(context.Background(), sess, types.RemoteFile{Name: "access.log.1", Size: 7}))
	assert.Equal(t, []string{"access.log.1"}, sess.downloads)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "remote\n", string(data))
}

func TestGunzip_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	gz := filepath.Join(dir, "access.log.3.gz")
	require.NoError(t, os.WriteFile(gz, gzipped(t, "fresh"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access.log.3"), []byte("already"), 0600))

	out, err := Gunzip(gz)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "access.log.3"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "already", string(data))
}

func TestGunzip_Corrupt(t *testing.T) {
	dir := t.TempDir()
	gz := filepath.Join(dir, "access.log.4.gz")
	require.NoError(t, os.WriteFile(gz, []byte("not gzip"), 0600))

	_, err := Gunzip(gz)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "access.log.4"))
}
