package core

import (
	"fmt"
	"os"
	"sync"
)

// LogRotator 按大小轮转的日志文件，只保留一个 .old 备份
type LogRotator struct {
	filename    string
	maxSize     int64 // bytes
	file        *os.File
	mu          sync.Mutex
	currentSize int64
}

// NewLogRotator maxSizeMB 为单个文件上限 (MB)
func NewLogRotator(filename string, maxSizeMB int) (*LogRotator, error) {
	return newLogRotator(filename, int64(maxSizeMB)*1024*1024)
}

func newLogRotator(filename string, maxBytes int64) (*LogRotator, error) {
	r := &LogRotator{
		filename: filename,
		maxSize:  maxBytes,
	}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *LogRotator) openFile() error {
	file, err := os.OpenFile(r.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	r.file = file
	r.currentSize = stat.Size()
	return nil
}

func (r *LogRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.currentSize > 0 && r.currentSize+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			// 轮转失败时继续写当前文件
			fmt.Fprintf(os.Stderr, "Log rotation failed: %v\n", err)
		}
	}

	n, err := r.file.Write(p)
	r.currentSize += int64(n)
	return n, err
}

// rotate universe.log -> universe.log.old，再打开新的 universe.log
func (r *LogRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	backupName := r.filename + ".old"
	_ = os.Remove(backupName)
	if err := os.Rename(r.filename, backupName); err != nil {
		// 重命名失败时重新打开原文件，保证后续写入可用
		if reopenErr := r.openFile(); reopenErr != nil {
			r.file = nil
		}
		return err
	}
	return r.openFile()
}

func (r *LogRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
