package reference

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/imgutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("入力元の種類にかかわらず投入順で返すのだ", func(t *testing.T) {
		dir := t.TempDir()
		filePath := filepath.Join(dir, "hero.png")
		require.NoError(t, os.WriteFile(filePath, pngHeader, 0o600))

		fetcher := newMockFetcher(map[string][]byte{"https://example.com/hero.jpg": jpegHeader})
		fetcher.delay = 20 * time.Millisecond
		loader := NewLoader(fetcher, WithURLValidator(allowAll), WithIDGenerator(sequentialIDs()))

		refs := loader.Load(ctx,
			FromURL("https://example.com/hero.jpg"),
			FromFile(filePath),
			FromDataURI(imgutil.EncodeDataURI("image/webp", []byte("webp-bytes"))),
			FromBytes("upload.png", pngHeader),
		)

		require.Len(t, refs, 4)
		assert.Equal(t, "image/jpeg", refs[0].MimeType)
		assert.Equal(t, jpegHeader, refs[0].Data)
		assert.Equal(t, "image/png", refs[1].MimeType)
		assert.Equal(t, "image/webp", refs[2].MimeType)
		assert.Equal(t, []byte("webp-bytes"), refs[2].Data)
		assert.Equal(t, pngHeader, refs[3].Data)

		ids := map[string]bool{}
		for _, r := range refs {
			ids[r.ID] = true
		}
		assert.Len(t, ids, 4, "IDは一意なのだ")
	})

	t.Run("読めない入力元は黙って除外されるのだ", func(t *testing.T) {
		loader := NewLoader(newMockFetcher(nil), WithURLValidator(allowAll))

		refs := loader.Load(ctx,
			FromBytes("notes.txt", []byte("hello world")),
			FromDataURI("data:image/png,not-base64-form"),
			FromDataURI("data:image/png;base64,@@@"),
			FromFile(filepath.Join(t.TempDir(), "missing.png")),
			FromURL("https://example.com/404.png"),
			FromBytes("empty.png", nil),
			FromBytes("ok.png", pngHeader),
		)

		require.Len(t, refs, 1)
		assert.Equal(t, pngHeader, refs[0].Data)
	})

	t.Run("内部ネットワークの URL は取得せずに除外するのだ", func(t *testing.T) {
		fetcher := newMockFetcher(map[string][]byte{"http://127.0.0.1/a.png": pngHeader})
		loader := NewLoader(fetcher)

		refs := loader.Load(ctx, FromURL("http://127.0.0.1/a.png"))

		assert.Empty(t, refs)
		assert.Equal(t, 0, fetcher.callCount("http://127.0.0.1/a.png"))
	})

	t.Run("取得済みの URL はキャッシュから返すのだ", func(t *testing.T) {
		const u = "https://example.com/cached.png"
		fetcher := newMockFetcher(map[string][]byte{u: pngHeader})
		loader := NewLoader(fetcher, WithURLValidator(allowAll), WithCache(newMockCache(), time.Minute))

		first := loader.Load(ctx, FromURL(u))
		second := loader.Load(ctx, FromURL(u))

		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.Equal(t, 1, fetcher.callCount(u))
		assert.NotEqual(t, first[0].ID, second[0].ID)
	})

	t.Run("上限サイズを超えた画像は除外するのだ", func(t *testing.T) {
		loader := NewLoader(nil, WithMaxBytes(4))

		refs := loader.Load(ctx, FromBytes("big.png", pngHeader))

		assert.Empty(t, refs)
	})

	t.Run("拡張子から MIME タイプを補うのだ", func(t *testing.T) {
		loader := NewLoader(nil)

		refs := loader.Load(ctx, FromBytes("photo.webp", []byte("RIFF????")))

		require.Len(t, refs, 1)
		assert.Equal(t, "image/webp", refs[0].MimeType)
	})

	t.Run("gs:// はオブジェクトリーダーから読むのだ", func(t *testing.T) {
		objects := &mockObjectReader{objects: map[string][]byte{"gs://bucket/hero.png": pngHeader}}
		loader := NewLoader(nil, WithObjectReader(objects))

		refs := loader.Load(ctx, ParseSource("gs://bucket/hero.png"), FromObject("gs://bucket/missing.png"))

		require.Len(t, refs, 1)
		assert.Equal(t, "image/png", refs[0].MimeType)
		assert.Equal(t, []string{"gs://bucket/hero.png", "gs://bucket/missing.png"}, objects.openedPaths())
	})

	t.Run("オブジェクトリーダーがなければ gs:// は除外するのだ", func(t *testing.T) {
		refs := NewLoader(nil).Load(ctx, FromObject("gs://bucket/hero.png"))
		assert.Empty(t, refs)
	})
}

func TestLoader_Start(t *testing.T) {
	fetcher := newMockFetcher(map[string][]byte{"https://example.com/slow.png": pngHeader})
	fetcher.delay = 30 * time.Millisecond
	loader := NewLoader(fetcher, WithURLValidator(allowAll))

	pending := loader.Start(context.Background(), nil, FromURL("https://example.com/slow.png"))

	refs, err := pending.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)

	select {
	case <-pending.Done():
	default:
		t.Fatal("Wait のあとは Done が閉じているはずなのだ")
	}

	t.Run("then は完了前に結果を受け取るのだ", func(t *testing.T) {
		var got []string
		p := loader.Start(context.Background(), func(refs []domain.ReferenceImage) {
			for _, r := range refs {
				got = append(got, r.MimeType)
			}
		}, FromBytes("a.png", pngHeader), FromBytes("b.jpg", jpegHeader))

		_, err := p.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"image/png", "image/jpeg"}, got)
	})

	t.Run("ctx が先に終われば ctx のエラーを返すのだ", func(t *testing.T) {
		fetcher.delay = time.Second
		p := loader.Start(context.Background(), nil, FromURL("https://example.com/slow.png?again"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseSource(t *testing.T) {
	assert.Equal(t, SourceDataURI, ParseSource("data:image/png;base64,AAAA").Kind)
	assert.Equal(t, SourceURL, ParseSource("https://example.com/a.png").Kind)
	assert.Equal(t, SourceURL, ParseSource("http://example.com/a.png").Kind)

	obj := ParseSource("gs://bucket/refs/a.png")
	assert.Equal(t, SourceObject, obj.Kind)
	assert.Equal(t, "gs://bucket/refs/a.png", obj.Location)

	src := ParseSource("./refs/../refs/a.png")
	assert.Equal(t, SourceFile, src.Kind)
	assert.Equal(t, "refs/a.png", src.Location)
}

func TestIsSafeURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"公開IP", "https://8.8.8.8/a.png", true},
		{"ループバック", "http://127.0.0.1/a.png", false},
		{"プライベート", "http://10.0.0.5/a.png", false},
		{"リンクローカル", "http://169.254.169.254/latest/meta-data", false},
		{"不許可スキーム", "file:///etc/passwd", false},
		{"パース不能", "not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := IsSafeURL(tt.url)
			assert.Equal(t, tt.want, got)
		})
	}
}
