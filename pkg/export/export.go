// Package export は選択中の生成結果をファイルとして書き出します。
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/imgutil"
)

// ErrNothingToExport は書き出す画像が選択されていないことを表します。
var ErrNothingToExport = errors.New("no image selected for export")

// Variant はファイル名に付ける書き出し種別です。画像の中身は変わりません。
type Variant string

const (
	VariantScene       Variant = "scene"
	VariantTransparent Variant = "transparent"
)

// ParseVariant は文字列を Variant に変換します。空文字は scene です。
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantScene:
		return VariantScene, nil
	case VariantTransparent:
		return VariantTransparent, nil
	}
	return "", fmt.Errorf("unknown export variant: %q", s)
}

// FileName は書き出し時刻から character-forge-<variant>-<timestamp>.png を作ります。
// タイムスタンプは UTC の ISO-8601 (ミリ秒) で、':' と '.' を '-' に置き換えます。
func FileName(v Variant, at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("character-forge-%s-%s.png", v, ts)
}

// Writer は書き出し先です。remoteio.OutputWriter と同じ形をしています。
type Writer interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// LocalWriter はローカルファイルシステムへ書き出す Writer です。
type LocalWriter struct{}

// NewLocalWriter は LocalWriter を生成します。
func NewLocalWriter() *LocalWriter {
	return &LocalWriter{}
}

// Write は親ディレクトリを作成してからファイルを書き込みます。
func (w *LocalWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗しました: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}
	return f.Close()
}

// Exporter は生成結果を dir 配下に書き出します。
type Exporter struct {
	writer Writer
	dir    string
	now    func() time.Time
}

// Option は Exporter の任意設定です。
type Option func(*Exporter)

// WithClock はファイル名に使う時刻の取得元を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// NewExporter は Exporter を生成します。dir はローカルパスか gs:// などの URI です。
func NewExporter(w Writer, dir string, opts ...Option) *Exporter {
	e := &Exporter{writer: w, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export は画像のバイナリをそのまま書き出し、書き込んだパスを返します。
func (e *Exporter) Export(ctx context.Context, img *domain.GeneratedImage, v Variant) (string, error) {
	if img == nil {
		return "", ErrNothingToExport
	}

	mimeType, data, err := Decode(img)
	if err != nil {
		return "", err
	}

	path := joinPath(e.dir, FileName(v, e.now()))
	if err := e.writer.Write(ctx, path, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("画像の書き出しに失敗しました (%s): %w", path, err)
	}

	slog.InfoContext(ctx, "画像を書き出しました", "path", path, "variant", v, "bytes", len(data))
	return path, nil
}

// Decode は生成結果の data URI を MIME タイプとバイナリに戻します。
func Decode(img *domain.GeneratedImage) (string, []byte, error) {
	if img == nil {
		return "", nil, ErrNothingToExport
	}
	mimeType, data, err := imgutil.ParseDataURI(img.URL)
	if err != nil {
		return "", nil, fmt.Errorf("生成結果のデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}

// joinPath は URI 形式の出力先では '/' でつなぎ、それ以外は OS のパスとして結合します。
func joinPath(dir, name string) string {
	if strings.Contains(dir, "://") {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}
