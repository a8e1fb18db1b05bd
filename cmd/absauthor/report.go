package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/infra/fsx"
)

const reportFileName = "report.json"

type outputFormat string

const (
	formatAuto outputFormat = ""
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatAuto, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("--output 只能是 json 或 yaml，实际是 %q", s)
	}
}

// emitReport 输出最终报告。
//
// 约束：
// - 指定了 --output，或 stdout 不是终端：stdout 必须且仅输出一个报告文档，摘要走 stderr
// - 终端且未指定格式：摘要 + 表格
func emitReport(out, errOut io.Writer, rr domain.RunReport, format outputFormat) error {
	if format == formatAuto && isTerminal(out) {
		fmt.Fprintln(out, summaryLine(rr.Summary))
		if len(rr.Items) > 0 {
			fmt.Fprintln(out, renderItemsTable(rr.Items))
		}
		return nil
	}

	if err := encodeReport(out, rr, format); err != nil {
		return err
	}
	fmt.Fprintln(errOut, summaryLine(rr.Summary))
	return nil
}

func encodeReport(w io.Writer, v any, format outputFormat) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func summaryLine(s domain.ReportSummary) string {
	return fmt.Sprintf("完成：processed=%d partial=%d skipped=%d failed=%d unmatched=%d",
		s.Processed, s.Partial, s.Skipped, s.Failed, s.Unmatched,
	)
}

func renderItemsTable(items []domain.ItemResult) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		key := it.Target
		if key == "" {
			key = truncate(it.Input, 40)
		}
		author := ""
		if it.Author != nil {
			author = it.Author.Name
			if it.Author.Tier != "" {
				author += " (" + it.Author.Tier + ")"
			}
		}
		note := it.Message
		if it.ErrorCode != "" {
			note = it.ErrorCode + ": " + truncate(it.ErrorMsg, 60)
		}
		rows = append(rows, []string{
			key,
			strings.ToUpper(it.Status),
			author,
			describeCell(it),
			photoCell(it),
			note,
		})
	}
	return renderTable(
		[]string{"Target", "Status", "Author", "Description", "Photo", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func describeCell(it domain.ItemResult) string {
	src := it.Description.Source
	if src == "" || src == domain.DescriptionNone {
		return "-"
	}
	s := fmt.Sprintf("%s/%d", src, it.Description.Length)
	if m := it.Updates.Description.Method; it.Updates.Description.Succeeded {
		s += " " + string(m)
	}
	return s
}

func photoCell(it domain.ItemResult) string {
	if it.PhotoURL == "" {
		return "-"
	}
	s := it.PhotoProvider
	if s == "" {
		s = "yes"
	}
	if it.Updates.Photo.Succeeded {
		s += " " + string(it.Updates.Photo.Method)
	}
	return s
}

func writeReportFile(stateDir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(stateDir, reportFileName, b)
}

// isTerminal 只对真实终端文件返回 true（测试中的 buffer 一律视为非终端）。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func pickProgressWriter(errOut, out io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout 报告）。
	if isTerminal(errOut) {
		return errOut, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTerminal(out) {
		return out, true
	}
	return nil, false
}
