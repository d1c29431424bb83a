package adapters

import (
	"context"

	"github.com/shouni/character-forge/pkg/generator"
	"google.golang.org/genai"
)

// mockModels は generator.ContentGenerator のテスト用モックなのだ。
type mockModels struct {
	key   string
	calls int
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls++
	return &genai.GenerateContentResponse{ModelVersion: model + "@" + m.key}, nil
}

// recordingFactory は作成したクライアントを記録するファクトリなのだ。
type recordingFactory struct {
	created []*mockModels
	err     error
}

func (f *recordingFactory) build(ctx context.Context, apiKey string) (generator.ContentGenerator, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := &mockModels{key: apiKey}
	f.created = append(f.created, m)
	return m, nil
}
