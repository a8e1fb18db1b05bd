// Package scan 读取批量输入：每行一个 LitRes 作者 URL 或 slug。
package scan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLine 限制单行长度，避免误把二进制文件当作输入时占满内存。
const maxLine = 64 * 1024

// ReadTargets 逐行读取输入。
//
// 规则：
// - 去掉首尾空白；空行跳过
// - 以 # 开头的行视为注释
// - 同一行里用空白分隔的多个地址分别作为输入
// - 不做 slug 解析与去重（由上层统一处理，以便报告 unmatched）
func ReadTargets(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	out := make([]string, 0, 32)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.Fields(s)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("读取输入失败（第 %d 行之后）：%w", line, err)
	}
	return out, nil
}

// ReadTargetFile 读取输入文件；path 为 "-" 时读 stdin。
func ReadTargetFile(path string) ([]string, error) {
	if path == "-" {
		return ReadTargets(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTargets(f)
}
