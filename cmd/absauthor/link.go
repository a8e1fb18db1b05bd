package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/app/planner"
	"github.com/John-Robertt/absauthor/internal/app/run"
	"github.com/John-Robertt/absauthor/internal/config"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/history"
	"github.com/John-Robertt/absauthor/internal/scan"
)

type linkOptions struct {
	input         string
	apply         bool
	noPhoto       bool
	noDescription bool
	noCache       bool
	concurrency   int
	output        string
}

func newLinkCmd(ro *rootOptions) *cobra.Command {
	lo := &linkOptions{}

	cmd := &cobra.Command{
		Use:   "link [litres-url|slug]...",
		Short: "批量链接 LitRes 作者页到 Audiobookshelf 作者",
		Example: `  # dry-run：只解析与匹配
  absauthor link https://www.litres.ru/author/boris-akunin/

  # 从文件读取（每行一个地址，# 开头为注释）并写入 ABS
  absauthor link --input authors.txt --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, ro, lo, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&lo.input, "input", "i", "", "输入文件（每行一个地址；- 表示 stdin）")
	f.BoolVar(&lo.apply, "apply", false, "写入 ABS（默认 dry-run）；支持 --apply=false 覆盖配置中的 run.apply")
	f.BoolVar(&lo.noPhoto, "no-photo", false, "不处理照片")
	f.BoolVar(&lo.noDescription, "no-description", false, "不处理简介")
	f.BoolVar(&lo.noCache, "no-cache", false, "不读写页面缓存")
	f.IntVar(&lo.concurrency, "concurrency", 0, "并发作者数（默认读配置，最终默认 2）")
	f.StringVarP(&lo.output, "output", "o", "", "报告格式：json|yaml（默认：终端显示表格，否则 json）")
	return cmd
}

func runLink(cmd *cobra.Command, ro *rootOptions, lo *linkOptions, args []string) error {
	format, err := parseOutputFormat(lo.output)
	if err != nil {
		return err
	}

	inputs := append([]string(nil), args...)
	if lo.input != "" {
		more, err := scan.ReadTargetFile(lo.input)
		if err != nil {
			return fmt.Errorf("读取输入文件失败：%w", err)
		}
		inputs = append(inputs, more...)
	}
	if len(inputs) == 0 && lo.input == "" && stdinIsPiped() {
		more, err := scan.ReadTargets(cmd.InOrStdin())
		if err != nil {
			return err
		}
		inputs = more
	}
	if len(inputs) == 0 {
		return errors.New("没有输入：请提供 LitRes 作者地址、slug 或 --input 文件")
	}

	cli := ro.cliArgs(cmd)
	cli.Apply, cli.ApplySet = lo.apply, flagChanged(cmd, "apply")
	cli.Concurrency, cli.ConcurrencySet = lo.concurrency, flagChanged(cmd, "concurrency")
	cli.NoCache = lo.noCache

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	eff, log, err := ro.load(cmd, cli)
	if err == nil {
		err = eff.RequireABS()
	}
	if err != nil {
		rr := reportForConfigError(eff, cli, err)
		if e := emitReport(out, errOut, rr, format); e != nil {
			return e
		}
		return err
	}

	p, err := run.New(eff, planner.Options{NoPhoto: lo.noPhoto, NoDescription: lo.noDescription}, log)
	if err != nil {
		return err
	}

	if eff.Apply {
		release, err := history.Lock(eff.StateDir)
		if err != nil {
			return err
		}
		defer func() { _ = release() }()

		store, err := history.Open(cmd.Context(), eff.StateDir)
		if err != nil {
			return fmt.Errorf("打开历史记录失败：%w", err)
		}
		defer store.Close()
		p.Journal = store
	}

	var obs run.Observer
	if progressW, interactive := pickProgressWriter(errOut, out); interactive {
		obs = newProgressUI(progressW)
	}

	rr := p.Execute(cmd.Context(), inputs, obs)

	// apply：写入 <state_dir>/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.StateDir, rr); err != nil {
			_ = emitReport(out, errOut, rr, format)
			return fmt.Errorf("写入 report.json 失败：%w", err)
		}
	}
	if err := emitReport(out, errOut, rr, format); err != nil {
		return err
	}
	if eff.Apply && isTerminal(errOut) {
		fmt.Fprintf(errOut, "report: %s\n", filepath.Join(eff.StateDir, reportFileName))
	}
	if !rr.Summary.OK() {
		return errItemsFailed
	}
	return nil
}

// reportForConfigError 为配置错误生成只含一条合成条目的报告，保证 stdout 契约不变。
func reportForConfigError(eff config.EffectiveConfig, cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	server := eff.ABSBaseURL
	if server == "" && cli.BaseURLSet {
		server = cli.BaseURL
	}
	rr := domain.RunReport{
		Server:     server,
		DryRun:     !(eff.Apply || (cli.ApplySet && cli.Apply)),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:      domain.StatusFailed,
			ErrorCode:   code,
			ErrorMsg:    err.Error(),
			Candidates:  []string{},
			Description: domain.DescriptionResult{Source: domain.DescriptionNone},
			Updates: domain.ItemUpdates{
				Description: domain.NoUpdate(),
				Photo:       domain.NoUpdate(),
			},
		}},
	}
	rr.Finalize()
	return rr
}

func stdinIsPiped() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}
