package config

import (
	"fmt"
	"strings"

	"github.com/shouni/character-forge/pkg/domain"
)

// GenerateOptions は generate コマンドのフラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 参照画像（ファイルパス、URL、data URI）
	Refs []string // --ref

	// シーン設定。空のものは設定ファイルの defaults を使うのだ
	Prompt      string // --prompt
	CameraAngle string // --camera
	AspectRatio string // --aspect
	RenderMode  string // --render
	Lighting    string // --lighting
	Transparent bool   // --transparent
	Resolution  string // --resolution

	// 書き出し
	Variant   string // --variant
	OutputDir string // --output-dir

	// キー未設定でも入力を求めない
	NoPromptKey bool // --no-prompt-key
}

// Params はフラグの値を defaults に重ねた生成設定を返すのだ。
func (o GenerateOptions) Params(defaults domain.GenerationParams) (domain.GenerationParams, error) {
	p := domain.GenerationParams{
		Prompt:            strings.TrimSpace(o.Prompt),
		CameraAngle:       strings.TrimSpace(o.CameraAngle),
		AspectRatio:       domain.AspectRatio(o.AspectRatio),
		RenderMode:        domain.RenderMode(o.RenderMode),
		Lighting:          domain.LightingStyle(o.Lighting),
		IsTransparentMode: o.Transparent || defaults.IsTransparentMode,
		Resolution:        domain.Resolution(strings.ToUpper(o.Resolution)),
	}
	if p.Prompt == "" {
		p.Prompt = defaults.Prompt
	}
	p = p.WithDefaults(defaults)
	if err := p.Validate(); err != nil {
		return domain.GenerationParams{}, fmt.Errorf("invalid generation options: %w", err)
	}
	return p, nil
}
