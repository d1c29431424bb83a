package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/imgutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Fetcher は URL からバイナリを取得します。httpkit.ClientInterface が満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ObjectReader は gs:// などのパスを開きます。remoteio.InputReader が満たします。
type ObjectReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Cacher は取得済み画像のキャッシュ操作を抽象化するインターフェースです。
type Cacher interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, d time.Duration)
}

// Loader は入力元を参照画像へデコードします。
// 1つの入力元が1つのタスクになり、失敗した入力元は黙って捨てられます。
type Loader struct {
	fetcher     Fetcher
	objects     ObjectReader
	cache       Cacher
	cacheTTL    time.Duration
	validateURL func(string) (bool, error)
	newID       func() string
	readFile    func(string) ([]byte, error)
	fetchGroup  singleflight.Group
	maxBytes    int
}

// LoaderOption は Loader の任意設定です。
type LoaderOption func(*Loader)

// WithCache は URL 取得結果のキャッシュを設定します。
func WithCache(c Cacher, ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cache = c
		l.cacheTTL = ttl
	}
}

// WithObjectReader は gs:// 入力の読み込み元を設定します。
func WithObjectReader(r ObjectReader) LoaderOption {
	return func(l *Loader) {
		l.objects = r
	}
}

// WithURLValidator は URL の検証関数を差し替えます。
func WithURLValidator(fn func(string) (bool, error)) LoaderOption {
	return func(l *Loader) {
		l.validateURL = fn
	}
}

// WithIDGenerator は参照画像 ID の採番関数を差し替えます。
func WithIDGenerator(fn func() string) LoaderOption {
	return func(l *Loader) {
		l.newID = fn
	}
}

// WithMaxBytes は1枚あたりの上限サイズを設定します。0 は無制限です。
func WithMaxBytes(n int) LoaderOption {
	return func(l *Loader) {
		l.maxBytes = n
	}
}

// NewLoader は Loader を生成します。fetcher が nil の場合 URL 入力はすべて捨てられます。
func NewLoader(fetcher Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:     fetcher,
		validateURL: IsSafeURL,
		newID:       uuid.NewString,
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load はすべての入力元を並行にデコードし、成功したものを入力順に返します。
func (l *Loader) Load(ctx context.Context, sources ...Source) []domain.ReferenceImage {
	slots := make([]*domain.ReferenceImage, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, src := range sources {
		eg.Go(func() error {
			ref, err := l.decode(egCtx, src)
			if err != nil {
				slog.WarnContext(egCtx, "参照画像を読み込めなかったため除外しました",
					"kind", src.Kind.String(), "source", src.label(), "error", err)
				return nil
			}
			slots[i] = &ref
			return nil
		})
	}
	// タスクはエラーを返さないので Wait の戻り値は常に nil
	_ = eg.Wait()

	refs := make([]domain.ReferenceImage, 0, len(sources))
	for _, ref := range slots {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs
}

// Start は Load をバックグラウンドで開始し、完了を待つためのハンドルを返します。
// then が nil でなければ、結果を渡して呼び出してから完了扱いにします。
func (l *Loader) Start(ctx context.Context, then func([]domain.ReferenceImage), sources ...Source) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.refs = l.Load(ctx, sources...)
		if then != nil {
			then(p.refs)
		}
	}()
	return p
}

// decode は1つの入力元を data URI 経由で参照画像に変換します。
func (l *Loader) decode(ctx context.Context, src Source) (domain.ReferenceImage, error) {
	uri, err := l.toDataURI(ctx, src)
	if err != nil {
		return domain.ReferenceImage{}, err
	}

	mimeType, data, err := imgutil.ParseDataURI(uri)
	if err != nil {
		return domain.ReferenceImage{}, err
	}
	if !imgutil.IsImageMimeType(mimeType) {
		return domain.ReferenceImage{}, fmt.Errorf("画像ではありません: %s", mimeType)
	}
	if l.maxBytes > 0 && len(data) > l.maxBytes {
		return domain.ReferenceImage{}, fmt.Errorf("サイズ上限を超えています: %d bytes", len(data))
	}

	return domain.ReferenceImage{
		ID:       l.newID(),
		MimeType: mimeType,
		Data:     data,
	}, nil
}

func (l *Loader) toDataURI(ctx context.Context, src Source) (string, error) {
	switch src.Kind {
	case SourceDataURI:
		return src.Location, nil
	case SourceBytes:
		return encodeWithMime(src.Location, src.Data), nil
	case SourceFile:
		data, err := l.readFile(src.Location)
		if err != nil {
			return "", fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
		}
		return encodeWithMime(src.Location, data), nil
	case SourceURL:
		data, err := l.fetch(ctx, src.Location)
		if err != nil {
			return "", err
		}
		return encodeWithMime(src.Location, data), nil
	case SourceObject:
		data, err := l.readObject(ctx, src.Location)
		if err != nil {
			return "", err
		}
		return encodeWithMime(src.Location, data), nil
	}
	return "", fmt.Errorf("未対応の入力元です: %d", src.Kind)
}

// fetch は URL から画像を取得します。同じ URL の同時取得は1回にまとめます。
func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if l.cache != nil {
		if cached, found := l.cache.Get(rawURL); found {
			if data, ok := cached.([]byte); ok {
				return data, nil
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "url", rawURL, "type", fmt.Sprintf("%T", cached))
		}
	}

	if l.fetcher == nil {
		return nil, fmt.Errorf("URL取得が設定されていません")
	}

	// SSRF対策のバリデーション
	safe, err := l.validateURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("SSRFの可能性がある、または不正なURLです: %w", err)
	}
	if !safe {
		return nil, fmt.Errorf("URLがブロックされました: %s", rawURL)
	}

	v, err, _ := l.fetchGroup.Do(rawURL, func() (interface{}, error) {
		return l.fetcher.FetchBytes(ctx, rawURL)
	})
	if err != nil {
		return nil, fmt.Errorf("参照画像のダウンロードに失敗しました: %w", err)
	}
	data := v.([]byte)

	if l.cache != nil {
		l.cache.Set(rawURL, data, l.cacheTTL)
	}
	return data, nil
}

func (l *Loader) readObject(ctx context.Context, uri string) ([]byte, error) {
	if l.objects == nil {
		return nil, fmt.Errorf("オブジェクトストレージの読み込みが設定されていません")
	}
	rc, err := l.objects.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("オブジェクトを開けませんでした: %w", err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if l.maxBytes > 0 {
		r = io.LimitReader(rc, int64(l.maxBytes)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("オブジェクトの読み込みに失敗しました: %w", err)
	}
	return data, nil
}

// encodeWithMime はシグネチャから MIME タイプを判定して data URI にします。
// 判定できない場合は拡張子から推定します。
func encodeWithMime(name string, data []byte) string {
	mimeType := imgutil.DetectMimeType(data)
	if !imgutil.IsImageMimeType(mimeType) {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			mimeType = byExt
		}
	}
	return imgutil.EncodeDataURI(mimeType, data)
}

// Pending はバックグラウンドで進むデコード処理のハンドルです。
type Pending struct {
	done chan struct{}
	refs []domain.ReferenceImage
}

// Done は完了時に閉じられるチャネルを返します。
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait は完了を待ち、デコードできた参照画像を返します。
func (p *Pending) Wait(ctx context.Context) ([]domain.ReferenceImage, error) {
	select {
	case <-p.done:
		return p.refs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
