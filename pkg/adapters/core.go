// Package adapters は genai SDK との境界を受け持ちます。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/character-forge/pkg/credential"
	"github.com/shouni/character-forge/pkg/generator"
	"google.golang.org/genai"
)

// ErrMissingAPIKey はキーが未設定のまま呼び出されたことを表します。
// 認証エラーとして扱われるよう UNAUTHENTICATED を含めています。
var ErrMissingAPIKey = errors.New("UNAUTHENTICATED: Gemini API key is not configured")

// ClientFactory は API キーから generateContent の呼び出し先を作ります。
type ClientFactory func(ctx context.Context, apiKey string) (generator.ContentGenerator, error)

// GenAIModel は呼び出しのたびに KeySource から現在のキーを読み、
// キーごとに genai クライアントを使い回す ContentGenerator です。
// キーの再選択後は次の呼び出しから新しいキーが使われます。
type GenAIModel struct {
	keys       credential.KeySource
	newClient  ClientFactory
	mu         sync.Mutex
	currentKey string
	client     generator.ContentGenerator
}

// NewGenAIModel は Gemini API バックエンドを使う GenAIModel を生成します。
func NewGenAIModel(keys credential.KeySource) *GenAIModel {
	return NewGenAIModelWithFactory(keys, NewGeminiClient)
}

// NewGenAIModelWithFactory はクライアント生成関数を差し替えて GenAIModel を生成します。
func NewGenAIModelWithFactory(keys credential.KeySource, factory ClientFactory) *GenAIModel {
	return &GenAIModel{keys: keys, newClient: factory}
}

// NewGeminiClient は API キーで genai クライアントを作り、その Models を返します。
func NewGeminiClient(ctx context.Context, apiKey string) (generator.ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genaiクライアントの作成に失敗しました: %w", err)
	}
	return client.Models, nil
}

// GenerateContent は現在のキーに対応するクライアントで1回だけ呼び出します。
func (m *GenAIModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	client, err := m.clientFor(ctx)
	if err != nil {
		return nil, err
	}
	return client.GenerateContent(ctx, model, contents, config)
}

func (m *GenAIModel) clientFor(ctx context.Context) (generator.ContentGenerator, error) {
	key := m.keys.APIKey()
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil && m.currentKey == key {
		return m.client, nil
	}

	client, err := m.newClient(ctx, key)
	if err != nil {
		return nil, err
	}
	if m.client != nil {
		slog.DebugContext(ctx, "APIキーが変わったためクライアントを作り直しました", "key", credential.Mask(key))
	}
	m.currentKey = key
	m.client = client
	return client, nil
}
