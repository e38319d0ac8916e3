package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// rw------- (只有擁有者可讀寫) - 適用於私鑰、機密檔
const FileModePrivate fs.FileMode = 0600

// ErrBroken 寫入失敗後無法還原檔案長度，之後的 Write 一律拒絕
var ErrBroken = errors.New("wal: log is broken")

// logFile WAL 用到的檔案操作，*os.File 即滿足
type logFile interface {
	io.ReadWriteSeeker
	io.Closer
	Stat() (fs.FileInfo, error)
	Sync() error
	Truncate(size int64) error
}

// WAL JSON lines 格式的 Write-Ahead Log，每次 Write 都會 fsync
type WAL struct {
	file logFile
	mu   sync.Mutex
	// broken 非 nil 表示檔尾可能殘留未確認的資料
	broken error
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write 寫入一筆資料並刷入硬碟，回傳 nil 代表已落地
//
// 寫入或 fsync 失敗時檔案會截回寫入前的長度，回傳錯誤的資料不會在重播時出現。
// 截斷本身也失敗則 WAL 進入 broken 狀態，之後的 Write 回傳 ErrBroken
func (w *WAL) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return fmt.Errorf("%w: %w", ErrBroken, w.broken)
	}

	// 1. 記下目前長度，失敗時截回
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	// 2. 寫入並 fsync
	if _, err := w.file.Write(data); err != nil {
		return w.rollback(size, err)
	}
	if err := w.file.Sync(); err != nil {
		return w.rollback(size, err)
	}
	return nil
}

// rollback 把檔案截回 size，截不回去就鎖死 WAL
//
// 呼叫端需持有 w.mu
func (w *WAL) rollback(size int64, cause error) error {
	err := w.file.Truncate(size)
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		w.broken = errors.Join(cause, err)
		return fmt.Errorf("%w: %w", ErrBroken, w.broken)
	}
	return cause
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 讀取所有資料
// callback 是一個函式，接收一筆 json.RawMessage
// 這樣可以避免一次將所有資料載入記憶體
//
// 檔尾寫到一半的資料 (當機時未完成的 Write，呼叫端從未收到成功) 會被截掉
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var good int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return w.file.Truncate(good)
			}
			return err
		}
		good = decoder.InputOffset()
		if err := callback(raw); err != nil {
			return err
		}
	}
}
