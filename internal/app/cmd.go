package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// defaultHealthcheckPort はhealthcheckサブコマンドの既定ポート。
const defaultHealthcheckPort = "8080"

// ErrUnexpectedArgs はサブコマンドに余分な引数が渡された場合のエラー。
var ErrUnexpectedArgs = errors.New("unexpected arguments")

// NewRootCommand はtaskhubのルートコマンドを生成する。
// サブコマンド無しで起動した場合はserveとして動作する。
func NewRootCommand(w io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskhub",
		Short: "Task, bug report and note tracking API",
		Long: `taskhub はタスク・バグレポート・ノートを管理するREST APIサーバー。

サブコマンドを省略した場合は serve として起動する。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), w)
		},
	}
	rootCmd.SetOut(w)
	rootCmd.SetErr(w)

	rootCmd.AddCommand(newServeCommand(w), newMigrateCommand(w), newHealthcheckCommand())
	return rootCmd
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), w)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	var opts migrateOptions

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `データベースマイグレーションを適用する。

--down N で直近N件を巻き戻し、--version で現在のバージョンを表示する。`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Down < 0 {
				return fmt.Errorf("--down must be positive, got %d", opts.Down)
			}
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runMigrate(cmd.OutOrStdout(), cfg, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Down, "down", 0, "roll back the given number of migrations")
	cmd.Flags().BoolVar(&opts.Version, "version", false, "print the current migration version")
	cmd.MarkFlagsMutuallyExclusive("down", "version")
	return cmd
}

func newHealthcheckCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local /health endpoint",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealthcheck(cmd.Context(), "http://localhost:"+healthcheckPort(port))
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "server port (defaults to SERVER_PORT or 8080)")
	return cmd
}

// healthcheckPort はフラグ、SERVER_PORT、既定値の順にポートを決定する。
func healthcheckPort(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv("SERVER_PORT"); p != "" {
		return p
	}
	return defaultHealthcheckPort
}

func serve(ctx context.Context, w io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(ctx)
	defer stop()
	return runServe(ctx, cfg)
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w for %q: %v", ErrUnexpectedArgs, cmd.CommandPath(), args)
	}
	return nil
}

// Run はコマンドライン引数を解釈し、対応するサブコマンドを実行する。
func Run(ctx context.Context, w io.Writer, args []string) error {
	rootCmd := NewRootCommand(w)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
