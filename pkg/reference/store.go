// Package reference は参照画像の保持と、ファイルや URL からの読み込みを扱います。
package reference

import (
	"slices"
	"sync"

	"github.com/shouni/character-forge/pkg/domain"
)

// Store はアップロード順に並んだ参照画像の集合です。
type Store struct {
	mu    sync.RWMutex
	items []domain.ReferenceImage
}

// NewStore は空の Store を生成します。
func NewStore() *Store {
	return &Store{}
}

// Add は末尾に参照画像を追加します。
func (s *Store) Add(refs ...domain.ReferenceImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, refs...)
}

// Remove は ID が一致する参照画像を取り除き、見つかったかどうかを返します。
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.items, func(r domain.ReferenceImage) bool { return r.ID == id })
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// List は現在の並びのコピーを返します。
func (s *Store) List() []domain.ReferenceImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len は保持している枚数を返します。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear はすべて取り除きます。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
