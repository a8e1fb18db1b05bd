package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/absauthor/internal/domain"
)

const cliAkuninPage = `<html><head>
<meta property="og:title" content="Борис Акунин — все книги автора">
</head><body>
<div data-testid="author__avatarPerson"><img src="https://cdn.litres.ru/pub/authors/123.jpg"></div>
<h1 itemprop="name">Борис Акунин</h1>
<div data-testid="author__personDescription"><p>Российский писатель, автор романов об Эрасте Фандорине и многих других книг.</p></div>
</body></html>`

// executeCLI 以给定参数运行根命令，返回 stdout/stderr 与错误。
func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCLI_URL(t *testing.T) {
	stdout, _, err := executeCLI(t, "url", "Борис", "Акунин")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := strings.TrimSpace(stdout); got != "https://www.litres.ru/author/boris-akunin/" {
		t.Fatalf("url 输出不符合预期：%q", got)
	}

	if _, _, err := executeCLI(t, "url", "!!!"); err == nil {
		t.Fatalf("无法转写的名字应报错")
	}
}

func TestCLI_Link_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	// 锁定对外契约：stdout 非 TTY 时只能输出一个 RunReport JSON（进度/配置必须走 stderr 或直接禁用）。
	litres := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/author/boris-akunin/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(cliAkuninPage))
	}))
	defer litres.Close()

	var writes int
	abs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method != http.MethodGet:
			writes++
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/libraries":
			_, _ = w.Write([]byte(`{"libraries":[{"id":"lib1","name":"Книги"}]}`))
		case r.URL.Path == "/api/libraries/lib1/authors":
			_, _ = w.Write([]byte(`{"authors":[{"id":"a1","name":"Борис Акунин"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer abs.Close()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "absauthor.toml")
	body := "[litres]\nbase_url = \"" + litres.URL + "\"\n\n[run]\nstate_dir = \"state\"\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatalf("写配置失败：%v", err)
	}

	stdout, stderr, err := executeCLI(t,
		"--config", cfg, "--base-url", abs.URL, "--token", "t",
		"link", "https://www.litres.ru/author/boris-akunin/",
	)
	if err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr, stdout)
	}

	var rr domain.RunReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout)
	}
	if strings.Contains(stdout, "配置（生效）") || strings.Contains(stdout, "进度:") {
		t.Fatalf("stdout 不应包含进度/配置输出：%q", stdout)
	}
	if !strings.Contains(stderr, "完成：processed=1") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}

	if !rr.DryRun || len(rr.Items) != 1 {
		t.Fatalf("报告不符合预期：%+v", rr)
	}
	it := rr.Items[0]
	if it.Status != domain.StatusProcessed || it.Author == nil || it.Author.ID != "a1" {
		t.Fatalf("条目不符合预期：%+v", it)
	}
	if writes != 0 {
		t.Fatalf("dry-run 不应写 ABS，实际 %d 次", writes)
	}
	if _, err := os.Stat(filepath.Join(dir, "state")); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建 state 目录，Stat err=%v", err)
	}
}

func TestCLI_Link_ConfigErrorStillEmitsReport(t *testing.T) {
	stdout, _, err := executeCLI(t,
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
		"link", "-o", "json", "boris-akunin",
	)
	if err == nil {
		t.Fatalf("缺少配置文件应返回错误")
	}

	var rr domain.RunReport
	if jerr := json.Unmarshal([]byte(stdout), &rr); jerr != nil {
		t.Fatalf("配置错误时 stdout 仍应是 RunReport JSON：%v\n%q", jerr, stdout)
	}
	if len(rr.Items) != 1 || rr.Items[0].ErrorCode != domain.ErrCodeConfigNotFound {
		t.Fatalf("报告应包含 config_not_found 条目：%+v", rr.Items)
	}
}

func TestCLI_Photo_RejectsNonUUID(t *testing.T) {
	_, _, err := executeCLI(t, "photo", "Борис Акунин")
	if err == nil || !strings.Contains(err.Error(), "UUID") {
		t.Fatalf("非 UUID 的 id 应报错，实际 %v", err)
	}
}

func TestCLI_Link_NoInput(t *testing.T) {
	_, _, err := executeCLI(t, "link")
	if err == nil || errors.Is(err, errItemsFailed) {
		t.Fatalf("没有输入时应直接报错，实际 %v", err)
	}
}
