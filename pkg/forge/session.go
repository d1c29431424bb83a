// Package forge はひとつの作業セッション（参照画像、生成設定、履歴、エラー表示）を管理します。
// 状態の変更はすべて Session のメソッドを通り、読み出しは値のスナップショットで返します。
package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/export"
	"github.com/shouni/character-forge/pkg/generator"
	"github.com/shouni/character-forge/pkg/history"
	"github.com/shouni/character-forge/pkg/reference"
)

// GenericFailureMessage はエラーメッセージが空だった場合に表示する文言です。
const GenericFailureMessage = "Failed to generate image. Ensure you have an API key selected."

var (
	// ErrValidationSkipped は参照画像かプロンプトが足りず、生成を行わなかったことを表します。
	ErrValidationSkipped = errors.New("generation skipped: at least one reference image and a prompt are required")
	// ErrInFlight は同じセッションで生成が進行中であることを表します。
	ErrInFlight = errors.New("a generation is already in progress")
)

// ReferenceLoader は入力元のデコードをバックグラウンドで開始します。
type ReferenceLoader interface {
	Start(ctx context.Context, then func([]domain.ReferenceImage), sources ...reference.Source) *reference.Pending
}

// Exporter は生成結果を書き出します。
type Exporter interface {
	Export(ctx context.Context, img *domain.GeneratedImage, v export.Variant) (string, error)
}

// Notice は利用者に表示するエラーです。
type Notice struct {
	Message string              `json:"message"`
	Kind    generator.ErrorKind `json:"kind"`
}

// Session は1つの作業セッションの状態を持ちます。
type Session struct {
	mu         sync.Mutex
	gen        generator.ImageGenerator
	loader     ReferenceLoader
	refs       *reference.Store
	params     domain.GenerationParams
	history    *history.Store
	generating bool
	notice     *Notice
	// lastBatch は最後に投入したデコードが参照画像に反映されたときに閉じられます。
	lastBatch chan struct{}
}

// Option は Session の任意設定です。
type Option func(*Session)

// WithLoader は参照画像のデコーダーを差し替えます。
func WithLoader(l ReferenceLoader) Option {
	return func(s *Session) {
		s.loader = l
	}
}

// WithInitialParams は初期設定を差し替えます。
func WithInitialParams(p domain.GenerationParams) Option {
	return func(s *Session) {
		s.params = p
	}
}

// WithHistory は履歴ストアを差し替えます。
func WithHistory(h *history.Store) Option {
	return func(s *Session) {
		s.history = h
	}
}

// NewSession は空のセッションを生成します。
func NewSession(gen generator.ImageGenerator, opts ...Option) *Session {
	done := make(chan struct{})
	close(done)

	s := &Session{
		gen:       gen,
		loader:    reference.NewLoader(nil),
		refs:      reference.NewStore(),
		params:    domain.DefaultParams(),
		history:   history.NewStore(),
		lastBatch: done,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddReferences は入力元のデコードを開始します。デコードできたものは投入順に末尾へ追加されます。
// 返されたハンドルの Wait は追加が反映されたあとに戻ります。
func (s *Session) AddReferences(ctx context.Context, sources ...reference.Source) *reference.Pending {
	s.mu.Lock()
	prev := s.lastBatch
	done := make(chan struct{})
	s.lastBatch = done
	s.mu.Unlock()

	return s.loader.Start(context.WithoutCancel(ctx), func(refs []domain.ReferenceImage) {
		defer close(done)
		// 先に投入されたバッチの反映を待ってから追加する
		<-prev
		s.refs.Add(refs...)
		slog.DebugContext(ctx, "参照画像を追加しました", "added", len(refs), "requested", len(sources))
	}, sources...)
}

// RemoveReference は参照画像を取り除きます。見つからなければ false です。
func (s *Session) RemoveReference(id string) bool {
	return s.refs.Remove(id)
}

// References は現在の参照画像のコピーを返します。
func (s *Session) References() []domain.ReferenceImage {
	return s.refs.List()
}

// Params は現在の生成設定を返します。
func (s *Session) Params() domain.GenerationParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// UpdateParams は設定のコピーに fn を適用し、検証に通れば反映します。
// fn がエラーを返したときは何も変更しません。
func (s *Session) UpdateParams(fn func(p *domain.GenerationParams) error) (domain.GenerationParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.params
	if err := fn(&next); err != nil {
		return s.params, err
	}
	if err := next.Validate(); err != nil {
		return s.params, fmt.Errorf("invalid params: %w", err)
	}
	s.params = next
	return next, nil
}

// SetParams は設定をまるごと置き換えます。
func (s *Session) SetParams(p domain.GenerationParams) error {
	_, err := s.UpdateParams(func(cur *domain.GenerationParams) error {
		*cur = p
		return nil
	})
	return err
}

// Generate は現在の参照画像と設定で1回生成します。
// 成功すれば履歴の先頭に追加して選択し、失敗すればエラー表示を設定します。
func (s *Session) Generate(ctx context.Context) (*domain.GeneratedImage, error) {
	if err := s.waitPending(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	refs := s.refs.List()
	params := s.params
	if !params.Ready(len(refs)) {
		s.mu.Unlock()
		return nil, ErrValidationSkipped
	}
	if s.generating {
		s.mu.Unlock()
		return nil, ErrInFlight
	}
	s.generating = true
	s.notice = nil
	s.mu.Unlock()

	url, err := s.gen.Generate(ctx, refs, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false

	if err != nil {
		s.notice = newNotice(err)
		return nil, err
	}

	img := s.history.Record(url, params)
	slog.InfoContext(ctx, "履歴に追加しました", "id", img.ID, "history", s.history.Len())
	return &img, nil
}

// CheckReady は投入済みのデコードを待ってから、今 Generate を呼べるかを返します。
// 前提を満たさなければ ErrValidationSkipped、生成中なら ErrInFlight です。
func (s *Session) CheckReady(ctx context.Context) error {
	if err := s.waitPending(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.params.Ready(s.refs.Len()) {
		return ErrValidationSkipped
	}
	if s.generating {
		return ErrInFlight
	}
	return nil
}

// waitPending は投入済みのデコードがすべて反映されるまで待ちます。
func (s *Session) waitPending(ctx context.Context) error {
	s.mu.Lock()
	batch := s.lastBatch
	s.mu.Unlock()

	select {
	case <-batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectHistory は表示する生成結果を切り替えます。
func (s *Session) SelectHistory(id string) error {
	return s.history.Select(id)
}

// Current は表示中の生成結果を返します。
func (s *Session) Current() (domain.GeneratedImage, bool) {
	return s.history.Current()
}

// HistoryImage は ID で生成結果を引きます。
func (s *Session) HistoryImage(id string) (domain.GeneratedImage, error) {
	return s.history.Get(id)
}

// DismissError はエラー表示を消します。
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
}

// Export は表示中の生成結果を書き出します。
func (s *Session) Export(ctx context.Context, exp Exporter, v export.Variant) (string, error) {
	img, ok := s.history.Current()
	if !ok {
		return "", export.ErrNothingToExport
	}
	return exp.Export(ctx, &img, v)
}

// NoticeFor は err を利用者向けのエラー表示に変換します。
func NoticeFor(err error) Notice {
	msg := err.Error()
	if msg == "" {
		msg = GenericFailureMessage
	}
	return Notice{Message: msg, Kind: generator.Kind(err)}
}

func newNotice(err error) *Notice {
	n := NoticeFor(err)
	return &n
}
