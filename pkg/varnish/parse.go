package varnish

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// StatRecord varnishstat -1 输出中的一行：计数器名与当前值
type StatRecord struct {
	Key   string
	Value string
}

var (
	storageFilePattern = regexp.MustCompile(`storage\.(\S+?)\s*=\s*file`)
	versionPattern     = regexp.MustCompile(`varnish-([0-9][^\s)]*)`)
)

// ParseCounters 解析 "MAIN.uptime  12345  1.00  Child process uptime" 格式，
// 只取前两个字段；不足两个字段的行跳过并计入 skipped
func ParseCounters(out string) (records []StatRecord, skipped int) {
	records = make([]StatRecord, 0, 256)
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			skipped++
			continue
		}
		records = append(records, StatRecord{Key: fields[0], Value: fields[1]})
	}
	return records, skipped
}

// banListHeader varnishadm ban.list 输出的首行
const banListHeader = "Present bans:"

// ParseBanCount 两种输入：
//   - "| wc -l" 的结果：首行为非负整数（部分系统带前导空格）
//   - ban.list 原始输出：按 wc -l 的口径计行，表头也算一行
func ParseBanCount(out string) (string, bool) {
	line, _, _ := strings.Cut(out, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if strings.HasPrefix(line, banListHeader) {
		return strconv.Itoa(strings.Count(out, "\n")), true
	}
	n, err := strconv.ParseUint(line, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}

// ParseFileStorages 从 storage.list 输出中提取文件型存储名
// 例： "storage.s0 = file" -> "s0"，"storage.malloc0 = malloc" 被忽略
func ParseFileStorages(out string) (storages []string, skipped int) {
	storages = []string{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "= file") {
			continue
		}
		m := storageFilePattern.FindStringSubmatch(line)
		if m == nil {
			skipped++
			continue
		}
		storages = append(storages, m[1])
	}
	return storages, skipped
}

// ParseServiceVersion "varnishd (varnish-6.0.11 revision a3bc025c)" -> "6.0.11"
func ParseServiceVersion(out string) (string, bool) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1], true
}
