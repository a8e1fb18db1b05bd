package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/absauthor/internal/api"
	"github.com/John-Robertt/absauthor/internal/app/planner"
	"github.com/John-Robertt/absauthor/internal/app/run"
	"github.com/John-Robertt/absauthor/internal/history"
	"github.com/John-Robertt/absauthor/internal/logging"
)

const defaultServeAddr = "127.0.0.1:8765"

func newServeCmd(ro *rootOptions) *cobra.Command {
	var (
		addr  string
		apply bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动本地 HTTP 接口（供浏览器脚本在 LitRes 页面上调用）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := ro.cliArgs(cmd)
			cli.Apply, cli.ApplySet = apply, flagChanged(cmd, "apply")

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
					return err
				}
				defer store.Close()
				p.Journal = store
			}

			srvLog := logging.NewComponentLogger(log, "api")
			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(&api.Server{Pipeline: p, Log: srvLog}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				srvLog.Info("listening", slog.String("addr", addr), slog.Bool("apply", eff.Apply))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err, ok := <-errCh:
				if ok {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			srvLog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", defaultServeAddr, "监听地址")
	f.BoolVar(&apply, "apply", false, "允许 /api/link 写入 ABS（默认只读）")
	return cmd
}
