// Package cmd は character-forge のコマンドライン構成なのだ。
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/shouni/character-forge/internal/config"
	"github.com/spf13/cobra"
)

var (
	// グローバルフラグ
	cfgFile    string
	imageModel string
	verbose    bool

	// 読み込んだ設定
	cfg *config.Config
)

// rootCmd はすべてのサブコマンドの親なのだ。
var rootCmd = &cobra.Command{
	Use:   "character-forge",
	Short: "参照画像のキャラクターを新しいシーンに描き直すのだ",
	Long: `character-forge はキャラクターの参照画像とシーン設定から、
Gemini の画像生成で同じキャラクターを別のシーンに描き直すツールなのだ。

generate で1枚生成して書き出し、serve でブラウザ向けの JSON API を提供するのだ。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	SilenceUsage: true,
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "設定ファイル (既定は ~/.character-forge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&imageModel, "image-model", "", "使用する Gemini 画像モデル名なのだ")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出すのだ")
}

// initApp は .env、ロガー、設定ファイルの順に初期化するのだ。
func initApp() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env の読み込みに失敗したのだ: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if imageModel != "" {
		loaded.ImageModel = imageModel
	}
	cfg = loaded

	slog.Debug("設定を読み込んだのだ", "path", cfg.ConfigPath, "model", cfg.ImageModel, "output_dir", cfg.OutputDir)
	return nil
}
