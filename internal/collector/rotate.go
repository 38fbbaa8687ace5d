package collector

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const rotateSuffixLayout = "20060102150405"

// RotatingWriter 把文本行写进按固定周期切片的文件。
// 文件名为 prefix 加切片起点时间, 与回放端的窗口过滤约定一致。
type RotatingWriter struct {
	dir      string
	prefix   string
	interval time.Duration

	mu      sync.Mutex
	file    *os.File
	w       *bufio.Writer
	sliceAt time.Time
	now     func() time.Time
}

// NewRotatingWriter 创建小时级(或其他周期)轮转写入器。
func NewRotatingWriter(dir, prefix string, interval time.Duration) (*RotatingWriter, error) {
	if interval <= 0 {
		interval = time.Hour
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	return &RotatingWriter{
		dir:      dir,
		prefix:   prefix,
		interval: interval,
		now:      time.Now,
	}, nil
}

// WriteLine 追加一行, 需要时先切换到新的切片文件。
func (r *RotatingWriter) WriteLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	slice := now.Truncate(r.interval)
	if r.file == nil || !slice.Equal(r.sliceAt) {
		if err := r.rollTo(slice); err != nil {
			return err
		}
	}
	if _, err := r.w.WriteString(line); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

// rollTo 关闭当前切片并打开新切片。调用方须持有 r.mu。
func (r *RotatingWriter) rollTo(slice time.Time) error {
	if r.file != nil {
		r.w.Flush()
		r.file.Close()
	}
	name := r.prefix + slice.Format(rotateSuffixLayout)
	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开日志切片失败: %w", err)
	}
	r.file = f
	r.w = bufio.NewWriter(f)
	r.sliceAt = slice
	return nil
}

func (r *RotatingWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		return err
	}
	err := r.file.Close()
	r.file = nil
	return err
}
