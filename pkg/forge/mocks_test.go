package forge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/export"
)

// --- Mocks ---

type generateCall struct {
	refs   []domain.ReferenceImage
	params domain.GenerationParams
}

// mockGenerator は generator.ImageGenerator のテスト用モックなのだ。
type mockGenerator struct {
	mu           sync.Mutex
	calls        []generateCall
	generateFunc func(ctx context.Context) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, refs []domain.ReferenceImage, params domain.GenerationParams) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, generateCall{refs: refs, params: params})
	m.mu.Unlock()

	if m.generateFunc != nil {
		return m.generateFunc(ctx)
	}
	return "data:image/png;base64,iVBORw0K", nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockGenerator) lastCall() generateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// mockExporter は Exporter のテスト用モックなのだ。
type mockExporter struct {
	img     *domain.GeneratedImage
	variant export.Variant
}

func (m *mockExporter) Export(ctx context.Context, img *domain.GeneratedImage, v export.Variant) (string, error) {
	m.img, m.variant = img, v
	return "out/" + export.FileName(v, time.Unix(0, 0)), nil
}

// slowFetcher は URL ごとに遅延を変えられる Fetcher なのだ。
type slowFetcher struct {
	delays map[string]time.Duration
	body   []byte
}

func (f *slowFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	d, ok := f.delays[url]
	if !ok {
		return nil, fmt.Errorf("unknown url: %s", url)
	}
	time.Sleep(d)
	return f.body, nil
}

// emptyError はメッセージが空のエラーなのだ。
type emptyError struct{}

func (emptyError) Error() string { return "" }

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func refA() domain.ReferenceImage {
	return domain.ReferenceImage{ID: "A", MimeType: "image/png", Data: []byte("a")}
}

func refB() domain.ReferenceImage {
	return domain.ReferenceImage{ID: "B", MimeType: "image/jpeg", Data: []byte("b")}
}
