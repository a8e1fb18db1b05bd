package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/app/planner"
	"github.com/John-Robertt/absauthor/internal/app/run"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/history"
)

type photoOptions struct {
	apply  bool
	output string
}

func newPhotoCmd(ro *rootOptions) *cobra.Command {
	po := &photoOptions{}

	cmd := &cobra.Command{
		Use:   "photo <author-id>",
		Short: "按 ABS 作者 id 从 Wikipedia 查找照片并写入",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhoto(cmd, ro, po, args[0])
		},
	}
	f := cmd.Flags()
	f.BoolVar(&po.apply, "apply", false, "写入 ABS（默认 dry-run）")
	f.StringVarP(&po.output, "output", "o", "", "报告格式：json|yaml")
	return cmd
}

func runPhoto(cmd *cobra.Command, ro *rootOptions, po *photoOptions, id string) error {
	format, err := parseOutputFormat(po.output)
	if err != nil {
		return err
	}
	// ABS 的作者 id 是 UUID；提前拒绝明显的误输入（比如把名字当成 id）。
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("作者 id 不是合法的 UUID：%q", id)
	}

	cli := ro.cliArgs(cmd)
	cli.Apply, cli.ApplySet = po.apply, flagChanged(cmd, "apply")

	eff, log, err := ro.load(cmd, cli)
	if err != nil {
		return err
	}
	if err := eff.RequireABS(); err != nil {
		return err
	}
	p, err := run.New(eff, planner.Options{}, log)
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

	started := time.Now()
	item := p.PhotoForAuthor(cmd.Context(), id)
	p.Record(cmd.Context(), "photo-"+id, item)

	rr := domain.RunReport{
		Server:     eff.ABSBaseURL,
		DryRun:     !eff.Apply,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Items:      []domain.ItemResult{item},
	}
	rr.Finalize()
	if err := emitReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), rr, format); err != nil {
		return err
	}
	if !rr.Summary.OK() {
		return errItemsFailed
	}
	return nil
}
