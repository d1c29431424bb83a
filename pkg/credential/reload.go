package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ReloadProvider は設定ファイルや環境変数からキーを読み直す Provider です。
// 端末のないサーバー実行で使います。
type ReloadProvider struct {
	store *KeyStore
	load  func() (string, error)
}

// NewReloadProvider は load で得たキーを store に反映する ReloadProvider を生成します。
func NewReloadProvider(store *KeyStore, load func() (string, error)) *ReloadProvider {
	return &ReloadProvider{store: store, load: load}
}

// HasCredential はキーが保持されているかを返します。
func (p *ReloadProvider) HasCredential(ctx context.Context) bool {
	return p.store.HasKey()
}

// RequestSelection はキーを読み直します。読み直したキーが空ならストアは変更しません。
func (p *ReloadProvider) RequestSelection(ctx context.Context) error {
	key, err := p.load()
	if err != nil {
		return fmt.Errorf("failed to reload key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	if key != p.store.APIKey() {
		slog.InfoContext(ctx, "API key reloaded", "key", Mask(key))
	}
	p.store.SetAPIKey(key)
	return nil
}
