package replay

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"skyline/internal/logger"
	"skyline/internal/market"
)

const rotateSuffixLayout = "20060102150405"

// readWindow 读取目录下按小时轮转的日志, 只取文件名后缀时间
// 落在 [start, end] 内的切片, 按文件名排序后逐行拼接。
func readWindow(dir, prefix string, start, end time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取日志目录失败: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		stamp := strings.TrimPrefix(name, prefix)
		ts, err := time.ParseInLocation(rotateSuffixLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		logger.Debugf("[replay] 读取 %s", name)
		chunk, err := readLines(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		lines = append(lines, chunk...)
	}
	return lines, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return out, nil
}

// parseExecLine 解析成交日志行:
// <received_ms>,<venue_ts>,<side>,<price>,<size>,<local_dt>,<venue_dt>
// 时间取本地接收时刻, 方向字段容忍多余空白。
func parseExecLine(line string) (market.Tick, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return market.Tick{}, fmt.Errorf("成交日志行字段不足: %q", line)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("坏的时间戳 %q: %w", fields[0], err)
	}
	side, err := market.ParseSide(fields[2])
	if err != nil {
		return market.Tick{}, err
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("坏的价格 %q: %w", fields[3], err)
	}
	size, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("坏的数量 %q: %w", fields[4], err)
	}
	return market.Tick{Timestamp: ts, Side: side, Price: price, Size: size}, nil
}
