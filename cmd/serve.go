package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shouni/character-forge/internal/builder"
	"github.com/spf13/cobra"
)

var (
	serveAddr         string
	serveSessionTTL   time.Duration
	serveRateInterval time.Duration
)

// serveCmd はブラウザ向けの JSON API を起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "セッション単位の JSON API サーバーを起動するのだ",
	Long: `参照画像の追加、シーン設定、生成、履歴、書き出しを HTTP で提供するのだ。
セッションは X-Session-ID ヘッダーで識別し、最後のアクセスから --session-ttl で破棄されるのだ。
API キーが無効なときは設定ファイルと環境変数を読み直すのだ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("session-ttl") {
			cfg.SessionTTL = serveSessionTTL
		}
		if cmd.Flags().Changed("rate-interval") {
			cfg.RateInterval = serveRateInterval
		}

		app, err := builder.NewAppContext(ctx, cfg, builder.BuildOptions{KeyMode: builder.KeyModeReload})
		if err != nil {
			return err
		}
		srv, err := app.NewServer(serveAddr)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addrOrDefault(serveAddr, cfg.Addr))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "待ち受けアドレス (既定は設定ファイルの addr)")
	serveCmd.Flags().DurationVar(&serveSessionTTL, "session-ttl", 0, "セッションの有効期間")
	serveCmd.Flags().DurationVar(&serveRateInterval, "rate-interval", 0, "生成リクエストを受け付ける最短間隔")

	rootCmd.AddCommand(serveCmd)
}

func addrOrDefault(addr, def string) string {
	if addr == "" {
		return def
	}
	return addr
}
