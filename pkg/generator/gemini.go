package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/character-forge/pkg/credential"
	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/prompts"
)

// GeminiGenerator は参照画像つきのキャラクター画像生成を担当するクライアントです。
// 前提条件（参照画像あり、プロンプトが空でない）は呼び出し側の責務で、ここでは再検証しません。
type GeminiGenerator struct {
	imgCore     *GeminiImageCore
	model       string
	credentials credential.Provider
}

// Option は GeminiGenerator の任意設定です。
type Option func(*GeminiGenerator)

// WithCredentialProvider はキー再選択機能を注入します。nil は「機能なし」として扱います。
func WithCredentialProvider(p credential.Provider) Option {
	return func(g *GeminiGenerator) {
		g.credentials = p
	}
}

// NewGeminiGenerator は GeminiGenerator を初期化するのだ。
func NewGeminiGenerator(aiClient ContentGenerator, model string, opts ...Option) (*GeminiGenerator, error) {
	core, err := NewGeminiImageCore(aiClient)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗しました: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}

	g := &GeminiGenerator{
		imgCore: core,
		model:   model,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Model は使用するモデル名を返します。
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate は1回だけ生成を行い、最初の画像を data URI で返します。
func (g *GeminiGenerator) Generate(ctx context.Context, refs []domain.ReferenceImage, params domain.GenerationParams) (string, error) {
	g.ensureCredential(ctx)

	payload := prompts.Build(refs, params)
	slog.InfoContext(ctx, "Gemini画像生成リクエストを送信します",
		"model", g.model,
		"ref_count", payload.ImageCount(),
		"aspect_ratio", params.AspectRatio,
		"resolution", params.Resolution,
		"transparent", params.IsTransparentMode,
	)

	resp, err := g.imgCore.sendRequest(ctx, g.model, payload, params)
	if err != nil {
		return "", g.handleRemoteError(ctx, err)
	}

	out, err := g.imgCore.parseToResponse(resp)
	if err != nil {
		slog.WarnContext(ctx, "レスポンスに画像が含まれていませんでした", "error", err)
		return "", err
	}

	slog.InfoContext(ctx, "画像生成に成功しました", "mime_type", out.MimeType, "bytes", len(out.Data))
	return out.DataURI(), nil
}

// ensureCredential はキーが未選択なら選択フローを開きます。失敗しても処理は続行します。
func (g *GeminiGenerator) ensureCredential(ctx context.Context) {
	if g.credentials == nil || g.credentials.HasCredential(ctx) {
		return
	}
	if err := g.credentials.RequestSelection(ctx); err != nil {
		slog.WarnContext(ctx, "APIキーの選択に失敗しました。設定済みのキーで続行します", "error", err)
	}
}

// handleRemoteError は認証エラーならキー再選択を1回だけ行い AuthRefreshedError を返します。
// それ以外は元のエラーをそのまま返します。
func (g *GeminiGenerator) handleRemoteError(ctx context.Context, err error) error {
	slog.ErrorContext(ctx, "Generation failed", "error", err)

	if !IsAuthError(err) || g.credentials == nil {
		return err
	}

	slog.InfoContext(ctx, "Auth failed, opening key selector...")
	if selErr := g.credentials.RequestSelection(ctx); selErr != nil {
		slog.WarnContext(ctx, "キーの再選択に失敗しました", "error", selErr)
	}
	return &AuthRefreshedError{Cause: err}
}
