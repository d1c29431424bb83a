package reference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// pngHeader は http.DetectContentType が image/png と判定する最小のシグネチャなのだ。
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// jpegHeader は image/jpeg と判定されるシグネチャなのだ。
var jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

// mockFetcher は Fetcher のテスト用モックなのだ。
type mockFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	delay  time.Duration
	calls  map[string]int
}

func newMockFetcher(bodies map[string][]byte) *mockFetcher {
	return &mockFetcher{bodies: bodies, calls: map[string]int{}}
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	m.calls[url]++
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	body, ok := m.bodies[url]
	if !ok {
		return nil, fmt.Errorf("404 not found: %s", url)
	}
	return body, nil
}

func (m *mockFetcher) callCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

// mockCache は Cacher のテスト用モックなのだ。
type mockCache struct {
	mu    sync.Mutex
	store map[string]interface{}
}

func newMockCache() *mockCache {
	return &mockCache{store: map[string]interface{}{}}
}

func (m *mockCache) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	return v, ok
}

func (m *mockCache) Set(key string, value interface{}, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
}

func allowAll(string) (bool, error) { return true, nil }

// sequentialIDs は呼ばれるたびに ref-1, ref-2 ... を返すのだ。
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("ref-%d", n)
	}
}

// mockObjectReader は ObjectReader のテスト用モックなのだ。
type mockObjectReader struct {
	mu      sync.Mutex
	objects map[string][]byte
	opened  []string
}

func (m *mockObjectReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	m.opened = append(m.opened, path)
	m.mu.Unlock()

	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// openedPaths は開かれたパスを並べ替えて返すのだ。並行に読まれるため順序は決まらないのだ。
func (m *mockObjectReader) openedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.opened...)
	sort.Strings(out)
	return out
}
