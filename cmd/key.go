package cmd

import (
	"fmt"

	"github.com/shouni/character-forge/internal/builder"
	"github.com/shouni/character-forge/pkg/credential"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Gemini API キーを管理するのだ",
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "API キーを入力して設定ファイルに保存するのだ",
	Long:  `キーはエコーなしで入力させ、設定ファイルの api_key に保存するのだ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, provider := builder.BuildCredentials(cfg, builder.KeyModeTerminal)
		if err := provider.RequestSelection(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved to %s\n", cfg.ConfigPath)
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "現在有効な API キーを伏せ字で表示するのだ",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.GeminiAPIKey == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "not configured")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), credential.Mask(cfg.GeminiAPIKey))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}
