package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/character-forge/internal/builder"
	"github.com/shouni/character-forge/internal/config"
	"github.com/shouni/character-forge/pkg/export"
	"github.com/shouni/character-forge/pkg/forge"
	"github.com/shouni/character-forge/pkg/generator"
	"github.com/shouni/character-forge/pkg/reference"
	"github.com/spf13/cobra"
)

var genOpts config.GenerateOptions

// generateCmd は参照画像とシーン設定から1枚生成して書き出すのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "参照画像のキャラクターで1枚生成して書き出すのだ",
	Long: `--ref で渡した参照画像 (ファイル、http(s) URL、gs:// パス、data URI) と
--prompt のシーン説明から画像を1枚生成し、--output-dir に書き出すのだ。

API キーが無効なときは端末で入力し直せるのだ。入力したキーは設定ファイルに保存されるのだよ。`,
	Example: `  character-forge generate --ref hero.png --prompt "standing on a rainy rooftop at night"
  character-forge generate --ref a.png --ref b.png --prompt "studio portrait" --transparent --resolution 4K`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context(), cmd)
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringArrayVarP(&genOpts.Refs, "ref", "r", nil, "参照画像 (複数指定できるのだ)")
	f.StringVarP(&genOpts.Prompt, "prompt", "p", "", "シーンの説明")
	f.StringVar(&genOpts.CameraAngle, "camera", "", "カメラアングル (options で一覧、自由入力も可)")
	f.StringVar(&genOpts.AspectRatio, "aspect", "", "アスペクト比 (1:1, 4:3, 16:9, 3:4, 9:16)")
	f.StringVar(&genOpts.RenderMode, "render", "", "描画スタイル")
	f.StringVar(&genOpts.Lighting, "lighting", "", "ライティング")
	f.BoolVar(&genOpts.Transparent, "transparent", false, "背景を透過用の単色にするのだ")
	f.StringVar(&genOpts.Resolution, "resolution", "", "解像度 (1K, 2K, 4K)")
	f.StringVar(&genOpts.Variant, "variant", "", "書き出し種別 (scene, transparent)。省略時は --transparent に合わせるのだ")
	f.StringVarP(&genOpts.OutputDir, "output-dir", "o", "", "書き出し先 (ローカル or gs://...)")
	f.BoolVar(&genOpts.NoPromptKey, "no-prompt-key", false, "キーが無効でも端末で入力を求めないのだ")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(ctx context.Context, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	params, err := genOpts.Params(cfg.Defaults)
	if err != nil {
		return err
	}
	variant, err := resolveVariant(genOpts.Variant, params.IsTransparentMode)
	if err != nil {
		return err
	}

	sources := make([]reference.Source, 0, len(genOpts.Refs))
	needsObjects := false
	for _, arg := range genOpts.Refs {
		src := reference.ParseSource(arg)
		needsObjects = needsObjects || src.Kind == reference.SourceObject
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return fmt.Errorf("--ref で参照画像を1枚以上指定してほしいのだ")
	}

	keyMode := builder.KeyModeTerminal
	if genOpts.NoPromptKey {
		keyMode = builder.KeyModeNone
	}
	app, err := builder.NewAppContext(ctx, cfg, builder.BuildOptions{
		KeyMode:            keyMode,
		OutputDir:          genOpts.OutputDir,
		NeedsObjectStorage: needsObjects,
	})
	if err != nil {
		return err
	}

	sess := app.NewSession()
	if err := sess.SetParams(params); err != nil {
		return err
	}

	added, err := sess.AddReferences(ctx, sources...).Wait(ctx)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return fmt.Errorf("参照画像を1枚も読み込めなかったのだ")
	}
	if len(added) < len(sources) {
		slog.WarnContext(ctx, "読み込めなかった参照画像があるのだ", "loaded", len(added), "requested", len(sources))
	}

	img, err := sess.Generate(ctx)
	if err != nil {
		return describeGenerateError(err, sess)
	}

	path, err := sess.Export(ctx, app.NewExporter(genOpts.OutputDir), variant)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "生成完了なのだ: %s (id=%s)\n", path, img.ID)
	return nil
}

// resolveVariant は --variant が省略されたら透過モードかどうかで決めるのだ。
func resolveVariant(raw string, transparent bool) (export.Variant, error) {
	if raw == "" && transparent {
		return export.VariantTransparent, nil
	}
	return export.ParseVariant(raw)
}

// describeGenerateError は利用者向けの説明を付けるのだ。
func describeGenerateError(err error, sess *forge.Session) error {
	switch {
	case errors.Is(err, forge.ErrValidationSkipped):
		return fmt.Errorf("--prompt が空なので生成しなかったのだ: %w", err)
	case generator.Kind(err) == generator.KindAuthRefreshed:
		return fmt.Errorf("API キーを選び直したのだ。もう一度実行してほしいのだ: %w", err)
	}
	if notice := sess.State().Error; notice != nil {
		return fmt.Errorf("%s (%s)", notice.Message, notice.Kind)
	}
	return err
}
