package generator

import (
	"context"

	"github.com/shouni/character-forge/pkg/domain"
	"google.golang.org/genai"
)

// ContentGenerator は Gemini の generateContent 呼び出しを抽象化するインターフェースです。
// *genai.Models はこのインターフェースをそのまま満たします。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ImageGenerator はセッション層が利用する生成窓口です。
type ImageGenerator interface {
	// Generate は参照画像と設定から1枚生成し、data URI を返します。
	Generate(ctx context.Context, refs []domain.ReferenceImage, params domain.GenerationParams) (string, error)
}
