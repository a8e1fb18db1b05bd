package main

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/absauthor/internal/app/run"
	"github.com/John-Robertt/absauthor/internal/config"
	"github.com/John-Robertt/absauthor/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的报告
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间无条目完成时也会定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	fail    int
	skip    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, inputs int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (不写入 ABS/缓存/历史)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] absauthor link (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  abs: %s\n", truncate(eff.ABSBaseURL, 120))
	fmt.Fprintf(p.w, "  litres: %s\n", truncate(eff.LitresBaseURL, 120))
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  photo fallback: %s\n", photoChain(eff.Languages))
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", onOff(eff.Cache))
	fmt.Fprintf(p.w, "  inputs: %d\n", inputs)

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  state: %s\n", eff.StateDir)
	if eff.Apply {
		fmt.Fprintf(p.w, "  report: %s\n", filepath.Join(eff.StateDir, reportFileName))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "input":
		fmt.Fprintf(p.w, "输入: inputs=%d authors=%d unmatched=%d (%s)\n",
			intField(fields, "inputs"), intField(fields, "targets"), intField(fields, "unmatched"), formatShortDuration(dur),
		)
	case "directory":
		fmt.Fprintf(p.w, "目录: authors=%d failed_libraries=%d (%s)\n",
			intField(fields, "authors"), intField(fields, "failed_libraries"), formatShortDuration(dur),
		)
	case "exec":
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total_items")
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d\n\n", p.workers, p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		// 兜底：未知阶段也不要静默。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// idx/total 由 run 层给出；这里同时维护自己的计数，供 keepalive 使用。
	p.done = idx
	p.total = total

	switch res.Status {
	case domain.StatusProcessed, domain.StatusPartial:
		p.ok++
	case domain.StatusFailed, domain.StatusUnmatched:
		p.fail++
	case domain.StatusSkipped:
		p.skip++
	}

	fmt.Fprintf(p.w, "[%d/%d] %s\n", idx, total, formatItemLine(res, dur))
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) OnProgress(done, total, ok, fail, skip, active int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w, progressLine(done, total, ok, fail, skip, active, elapsed))
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					active := p.workers
					if remain := p.total - p.done; remain < active {
						active = remain
					}
					fmt.Fprintln(p.w, progressLine(p.done, p.total, p.ok, p.fail, p.skip, active, time.Since(p.startedAt)))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func progressLine(done, total, ok, fail, skip, active int, elapsed time.Duration) string {
	return fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d skip=%d active=%d elapsed=%s",
		done, total, ok, fail, skip, active, formatElapsed(elapsed),
	)
}

// formatItemLine 生成单个作者的一行结果。
func formatItemLine(res domain.ItemResult, dur time.Duration) string {
	key := res.Target
	if key == "" {
		key = truncate(res.Input, 60)
	}

	switch res.Status {
	case domain.StatusFailed, domain.StatusUnmatched:
		chain := formatAttemptChain(res.Attempts, 1)
		if chain != "" {
			chain = " attempts=" + chain
		}
		return fmt.Sprintf("%s %s %s: %s%s (%s)",
			key, statusLabel(res.Status), res.ErrorCode, truncate(res.ErrorMsg, 160), chain, formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		return fmt.Sprintf("%s %s (%s) (%s)", key, statusLabel(res.Status), res.Message, formatShortDuration(dur))
	}

	author := "-"
	if res.Author != nil {
		author = fmt.Sprintf("%s[%s]", res.Author.Name, res.Author.Tier)
	}
	line := fmt.Sprintf("%s %s author=%s desc=%s photo=%s",
		key, statusLabel(res.Status), author, res.Description.Source, photoSource(res),
	)
	if res.Status == domain.StatusPartial {
		line += " " + res.ErrorCode + ": " + truncate(res.ErrorMsg, 90)
	}
	if note := formatFallbackNote(res); note != "" {
		line += note
	}
	return line + " (" + formatShortDuration(dur) + ")"
}

func statusLabel(status string) string {
	switch status {
	case domain.StatusProcessed:
		return "OK"
	case domain.StatusPartial:
		return "PARTIAL"
	case domain.StatusSkipped:
		return "SKIP"
	case domain.StatusFailed:
		return "FAIL"
	case domain.StatusUnmatched:
		return "UNMATCHED"
	default:
		return strings.ToUpper(status)
	}
}

func photoSource(res domain.ItemResult) string {
	if res.PhotoURL == "" {
		return "none"
	}
	if res.PhotoProvider == "" {
		return "yes"
	}
	return res.PhotoProvider
}

// formatFallbackNote 在照片来自回退来源时说明作者页为何没有提供。
func formatFallbackNote(res domain.ItemResult) string {
	used := strings.ToLower(strings.TrimSpace(res.PhotoProvider))
	page := strings.ToLower(strings.TrimSpace(res.ProviderUsed))
	if used == "" || page == "" || used == page {
		return ""
	}
	// 只展示回退链上失败的尝试（否则会变成噪音）。
	for _, a := range res.Attempts {
		if strings.TrimSpace(a.ErrorCode) == "" || a.Provider == used {
			continue
		}
		msg := strings.TrimSpace(a.ErrorMsg)
		if msg == "" {
			msg = a.ErrorCode
		} else {
			msg = a.ErrorCode + ": " + msg
		}
		return " fallback(" + a.Provider + " " + truncate(msg, 90) + ")"
	}
	return " fallback(" + page + " 无照片)"
}

func formatAttemptChain(attempts []domain.ProviderAttempt, max int) string {
	if len(attempts) == 0 || max == 0 {
		return ""
	}
	if max < 0 {
		max = len(attempts)
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		s := strings.TrimSpace(a.Provider) + ":" + strings.TrimSpace(a.Stage)
		if ec := strings.TrimSpace(a.ErrorCode); ec != "" {
			s += ":" + ec
		}
		if em := strings.TrimSpace(a.ErrorMsg); em != "" {
			s += ":" + truncate(em, 80)
		}
		parts = append(parts, s)
		if len(parts) >= max {
			break
		}
	}
	return strings.Join(parts, ";")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func photoChain(langs []string) string {
	chain := []string{"litres"}
	for _, l := range langs {
		chain = append(chain, "wikipedia-"+l)
	}
	return strings.Join(chain, " -> ")
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按字符截断（作者名与简介多为西里尔字母，不能按字节切）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}
