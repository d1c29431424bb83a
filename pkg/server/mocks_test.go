package server

import (
	"context"
	"sync"

	"github.com/shouni/character-forge/pkg/domain"
)

// mockGenerator は generator.ImageGenerator のテスト用モックなのだ。
type mockGenerator struct {
	mu    sync.Mutex
	err   error
	url   string
	calls int
}

func (m *mockGenerator) Generate(ctx context.Context, refs []domain.ReferenceImage, params domain.GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	if m.url != "" {
		return m.url, nil
	}
	// "PNGDATA" を base64 にしたもの
	return "data:image/png;base64,UE5HREFUQQ==", nil
}

func (m *mockGenerator) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
