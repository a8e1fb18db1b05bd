package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/app/planner"
	"github.com/John-Robertt/absauthor/internal/app/run"
)

// errNotFound 表示目录中没有命中的作者。
var errNotFound = errors.New("ABS 中没有匹配的作者")

func newResolveCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <name>...",
		Short:   "在 ABS 作者目录中查找候选名对应的作者",
		Example: `  absauthor resolve "Борис Акунин" "Boris Akunin"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, log, err := ro.load(cmd, ro.cliArgs(cmd))
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

			candidates := planner.Candidates(args)
			m, ok, err := p.Resolver.Resolve(cmd.Context(), candidates)
			if err != nil {
				return fmt.Errorf("读取 ABS 作者目录失败：%w", err)
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "not found: %s\n", strings.Join(candidates, " | "))
				return errNotFound
			}
			fmt.Fprintf(out, "id:        %s\n", m.Record.ID)
			fmt.Fprintf(out, "name:      %s\n", m.Record.Name)
			fmt.Fprintf(out, "tier:      %s\n", m.Tier)
			fmt.Fprintf(out, "candidate: %s\n", m.Candidate)
			return nil
		},
	}
}
