package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/config"
	"github.com/John-Robertt/absauthor/internal/logging"
)

// errItemsFailed 让进程以非零状态退出（报告本身已经输出）。
var errItemsFailed = errors.New("存在失败或未匹配的条目")

// rootOptions 是所有子命令共享的全局参数。
type rootOptions struct {
	configPath string
	baseURL    string
	token      string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "absauthor",
		Short: "把 LitRes 作者页的简介与照片同步到 Audiobookshelf 作者",
		Long: `absauthor 读取 LitRes 作者页，在 Audiobookshelf 作者目录中找到对应的作者，
并把作者简介与照片写回 Audiobookshelf。

默认 dry-run：只解析与匹配，不写入任何东西；使用 --apply 执行写入。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := config.LoadDotEnv(cwd); err != nil {
				return fmt.Errorf("读取 .env 失败：%w", err)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&ro.configPath, "config", "", "配置文件路径（默认 ./"+config.FileName+"）")
	pf.StringVar(&ro.baseURL, "base-url", "", "Audiobookshelf 地址（覆盖 "+config.EnvBaseURL+"）")
	pf.StringVar(&ro.token, "token", "", "Audiobookshelf API token（覆盖 "+config.EnvToken+"）")
	pf.StringVar(&ro.logLevel, "log-level", "", "日志级别：debug|info|warn|error")

	cmd.AddCommand(
		newLinkCmd(ro),
		newResolveCmd(ro),
		newPhotoCmd(ro),
		newURLCmd(ro),
		newHistoryCmd(ro),
		newServeCmd(ro),
	)
	return cmd
}

// cliArgs 把全局参数转换为 config.CLIArgs；只有显式给出的参数才参与覆盖。
func (ro *rootOptions) cliArgs(cmd *cobra.Command) config.CLIArgs {
	return config.CLIArgs{
		ConfigPath:  ro.configPath,
		BaseURL:     ro.baseURL,
		BaseURLSet:  flagChanged(cmd, "base-url"),
		Token:       ro.token,
		TokenSet:    flagChanged(cmd, "token"),
		LogLevel:    ro.logLevel,
		LogLevelSet: flagChanged(cmd, "log-level"),
	}
}

// load 读取生效配置并构造 logger。
func (ro *rootOptions) load(cmd *cobra.Command, cli config.CLIArgs) (config.EffectiveConfig, *slog.Logger, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, nil, err
	}
	eff, err := config.LoadEffective(cwd, cli, nil)
	if err != nil {
		return config.EffectiveConfig{}, nil, err
	}
	log, err := logging.New(logging.Options{
		Level:  eff.LogLevel,
		Format: eff.LogFormat,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return config.EffectiveConfig{}, nil, err
	}
	return eff, log, nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
