package generator

import (
	"context"
	"fmt"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/prompts"
	"google.golang.org/genai"
)

// GeminiImageCore はリクエスト送信とレスポンス解析を受け持つ基盤です。
type GeminiImageCore struct {
	aiClient ContentGenerator
}

// NewGeminiImageCore は依存関係を注入して GeminiImageCore を初期化します。
func NewGeminiImageCore(aiClient ContentGenerator) (*GeminiImageCore, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	return &GeminiImageCore{aiClient: aiClient}, nil
}

// sendRequest は1回だけ generateContent を呼び出します。リトライは行いません。
func (c *GeminiImageCore) sendRequest(ctx context.Context, model string, payload prompts.Payload, params domain.GenerationParams) (*genai.GenerateContentResponse, error) {
	return c.aiClient.GenerateContent(ctx, model, payload.Contents(), buildGenerateConfig(params))
}

// parseToResponse は最初の候補から最初のインライン画像パーツを取り出します。
// データが空でもインラインパーツがあればそれを返します。
func (c *GeminiImageCore) parseToResponse(resp *genai.GenerateContentResponse) (*ImageOutput, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, fmt.Errorf("%w: empty response", ErrNoImageReturned)
	}

	// 最初の候補 (Candidate) のみを利用する。
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil {
				return &ImageOutput{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}

	// 安全フィルター等によるブロックの確認
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w (FinishReason: %s)", ErrNoImageReturned, candidate.FinishReason)
	}

	return nil, ErrNoImageReturned
}
