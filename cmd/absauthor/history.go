package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/history"
)

func newHistoryCmd(ro *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看最近的 apply 记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, _, err := ro.load(cmd, ro.cliArgs(cmd))
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), eff.StateDir)
			if err != nil {
				return fmt.Errorf("打开历史记录失败：%w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "没有历史记录")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "最多显示的条数")
	return cmd
}

func renderHistoryTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := e.Status
		if e.ErrorCode != "" {
			status += " (" + e.ErrorCode + ")"
		}
		author := e.AuthorName
		if author == "" {
			author = "-"
		}
		desc := e.DescriptionSource
		if e.DescriptionMethod != "" && e.DescriptionMethod != "none" {
			desc += " " + e.DescriptionMethod
		}
		photo := "-"
		if e.PhotoMethod != "" && e.PhotoMethod != "none" {
			photo = e.PhotoMethod
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Target,
			status,
			author,
			desc,
			photo,
		})
	}
	return renderTable(
		[]string{"ID", "Time", "Target", "Status", "Author", "Description", "Photo"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
