package generator

import (
	"context"

	"google.golang.org/genai"
)

// --- Mocks ---

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// mockAIClient は ContentGenerator のテスト用モックなのだ。
type mockAIClient struct {
	generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	calls        []generateCall
}

func (m *mockAIClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls = append(m.calls, generateCall{model: model, contents: contents, config: config})
	if m.generateFunc != nil {
		return m.generateFunc(ctx, model, contents, config)
	}
	return imageResponse("image/png", []byte("fake")), nil
}

// mockCredentials は credential.Provider のテスト用モックなのだ。
type mockCredentials struct {
	has         bool
	selectErr   error
	selectCalls int
}

func (m *mockCredentials) HasCredential(ctx context.Context) bool {
	return m.has
}

func (m *mockCredentials) RequestSelection(ctx context.Context) error {
	m.selectCalls++
	return m.selectErr
}

// imageResponse はインライン画像を1つ含むレスポンスを作るヘルパーなのだ。
func imageResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}},
			},
		}},
	}
}
