package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	log = NewComponentLogger(log, "resolver")
	log.Info("被过滤")
	log.Warn("目录不完整", Error(errors.New("HTTP 500")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("期望只输出 1 行，实际 %d：%q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("输出不是 JSON：%v", err)
	}
	if rec["component"] != "resolver" || rec["error"] != "HTTP 500" || rec["level"] != "WARN" {
		t.Fatalf("字段不符合预期：%v", rec)
	}
}

func TestNew_ConsoleAndUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	log.Debug("hello", "slug", "boris-akunin")
	if !strings.Contains(buf.String(), "slug=boris-akunin") {
		t.Fatalf("console 输出不符合预期：%q", buf.String())
	}

	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("未知格式应报错")
	}
}

func TestNewNop(t *testing.T) {
	log := NewComponentLogger(nil, "x")
	log.Error("不会输出")
	if log.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("nop logger 不应启用任何级别")
	}
}
