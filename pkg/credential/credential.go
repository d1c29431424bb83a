// Package credential は生成 API の認証情報（API キー）の保持と再選択を扱います。
package credential

import (
	"context"
	"strings"
	"sync"
)

// Provider はホスト環境が提供する認証情報の選択機能です。
// 提供されない環境では nil を渡し、キーは別経路で設定済みとみなします。
type Provider interface {
	// HasCredential は利用可能な認証情報があるかを返します。
	HasCredential(ctx context.Context) bool
	// RequestSelection はユーザーに認証情報を選び直してもらい、完了まで待ちます。
	RequestSelection(ctx context.Context) error
}

// KeySource は現在の API キーを返します。
type KeySource interface {
	APIKey() string
}

// KeyStore はプロセス内で API キーを保持する KeySource です。
type KeyStore struct {
	mu  sync.RWMutex
	key string
}

// NewKeyStore は初期キーを持つ KeyStore を生成します。空文字でも構いません。
func NewKeyStore(initial string) *KeyStore {
	return &KeyStore{key: strings.TrimSpace(initial)}
}

// APIKey は現在のキーを返します。
func (s *KeyStore) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// SetAPIKey はキーを差し替えます。
func (s *KeyStore) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = strings.TrimSpace(key)
}

// HasKey はキーが設定されているかを返します。
func (s *KeyStore) HasKey() bool {
	return s.APIKey() != ""
}

// Mask はログ出力用に先頭と末尾の4文字だけを残した表記を返します。
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
