package generator

import (
	"github.com/shouni/character-forge/pkg/domain"
	"google.golang.org/genai"
)

// buildGenerateConfig は設定値を API の画像設定トークンへ写像します。
// アスペクト比は列挙値の文字列をそのまま渡します。
func buildGenerateConfig(params domain.GenerationParams) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: string(params.AspectRatio),
			ImageSize:   imageSizeToken(params.Resolution),
		},
	}
}

func imageSizeToken(r domain.Resolution) string {
	switch r {
	case domain.Resolution4K:
		return "4K"
	case domain.Resolution2K:
		return "2K"
	}
	return "1K"
}
