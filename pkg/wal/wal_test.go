package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func readEntries(t *testing.T, w *WAL) []entry {
	t.Helper()
	var out []entry
	err := w.ReadAll(func(raw []byte) error {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestWriteThenReadAllInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Write(entry{Seq: i, Note: "n"}))
	}

	got := readEntries(t, w)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, i+1, e.Seq)
	}

	// ReadAll 之後仍可繼續追加
	require.NoError(t, w.Write(entry{Seq: 4}))
	assert.Len(t, readEntries(t, w), 4)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(entry{Seq: 1}))
	require.NoError(t, w.Close())

	w, err = NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	got := readEntries(t, w)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Seq)
}

func TestReadAllTruncatesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(entry{Seq: 1}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, FileModePrivate)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":2,"no`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err = NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	got := readEntries(t, w)
	require.Len(t, got, 1)

	require.NoError(t, w.Write(entry{Seq: 3}))
	got = readEntries(t, w)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].Seq)
}

func TestReadAllStopsOnCallbackError(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "wal.log"))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Write(entry{Seq: 1}))
	require.NoError(t, w.Write(entry{Seq: 2}))

	calls := 0
	err = w.ReadAll(func([]byte) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

// faultyFile 在指定的操作上回傳錯誤
type faultyFile struct {
	*os.File
	shortWrite  bool
	syncErr     error
	truncateErr error
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.shortWrite {
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errors.New("no space left on device")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.syncErr != nil {
		return f.syncErr
	}
	return f.File.Sync()
}

func (f *faultyFile) Truncate(size int64) error {
	if f.truncateErr != nil {
		return f.truncateErr
	}
	return f.File.Truncate(size)
}

func openFaulty(t *testing.T, path string) (*WAL, *faultyFile) {
	t.Helper()
	w, err := NewWAL(path)
	require.NoError(t, err)
	f := &faultyFile{File: w.file.(*os.File)}
	w.file = f
	return w, f
}

func reopen(t *testing.T, path string) []entry {
	t.Helper()
	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	return readEntries(t, w)
}

func TestFailedWriteLeavesNoPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, f := openFaulty(t, path)
	require.NoError(t, w.Write(entry{Seq: 1, Note: "a"}))

	f.shortWrite = true
	assert.Error(t, w.Write(entry{Seq: 2, Note: "b"}))

	// 截回之後下一筆可以正常接在後面
	f.shortWrite = false
	require.NoError(t, w.Write(entry{Seq: 3, Note: "c"}))
	require.NoError(t, w.Close())

	got := reopen(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Note)
	assert.Equal(t, "c", got[1].Note)
}

func TestFailedSyncDropsEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, f := openFaulty(t, path)
	require.NoError(t, w.Write(entry{Seq: 1}))

	f.syncErr = errors.New("fsync: input/output error")
	err := w.Write(entry{Seq: 2})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBroken)
	require.NoError(t, w.Close())

	got := reopen(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Seq)
}

func TestUnrecoverableWriteLatchesBroken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, f := openFaulty(t, path)
	require.NoError(t, w.Write(entry{Seq: 1}))

	f.shortWrite = true
	f.truncateErr = errors.New("read-only file system")
	err := w.Write(entry{Seq: 2})
	assert.ErrorIs(t, err, ErrBroken)

	// 錯誤排除之後仍然拒絕寫入
	f.shortWrite = false
	f.truncateErr = nil
	err = w.Write(entry{Seq: 3})
	assert.ErrorIs(t, err, ErrBroken)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
