package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/config"
	"github.com/John-Robertt/absauthor/internal/slug"
)

func newURLCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "url <name>",
		Short: "由作者名（西里尔字母）推算 LitRes 作者页地址",
		Example: `  absauthor url Борис Акунин
  # https://www.litres.ru/author/boris-akunin/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if slug.FromName(name) == "" {
				return errors.New("作者名转写后为空")
			}
			base := config.DefaultLitresBaseURL
			// url 不需要 ABS；配置文件存在时只取 litres.base_url。
			if eff, _, err := ro.load(cmd, ro.cliArgs(cmd)); err == nil {
				base = eff.LitresBaseURL
			}
			fmt.Fprintln(cmd.OutOrStdout(), slug.LitresURL(base, name))
			return nil
		},
	}
}
