// Package history は生成結果の履歴を新しい順に保持します。
package history

import (
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
)

// ErrNotFound は指定した ID の生成結果が履歴にないことを表します。
var ErrNotFound = errors.New("history entry not found")

// Store はセッション内の生成結果を新しい順に保持します。
// 選択中の ID が履歴にない場合は先頭（最新）を現在の画像として扱います。
type Store struct {
	mu       sync.RWMutex
	entries  []domain.GeneratedImage
	activeID string
	lastID   int64
	now      func() time.Time
}

// Option は Store の任意設定です。
type Option func(*Store)

// WithClock は時刻の取得元を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore は空の履歴を生成します。
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record は生成結果を先頭に追加し、選択状態にします。
// ID は生成時刻のミリ秒で、直前の ID と重なる場合は1つずらします。
func (s *Store) Record(dataURI string, snapshot domain.GenerationParams) domain.GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	id := at.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	img := domain.GeneratedImage{
		ID:        strconv.FormatInt(id, 10),
		URL:       dataURI,
		Prompt:    snapshot.Prompt,
		Timestamp: at,
		Params:    snapshot,
	}
	s.entries = slices.Insert(s.entries, 0, img)
	s.activeID = img.ID
	return img
}

// Select は表示する生成結果を切り替えます。
// 履歴にない ID も選択されたものとして保持し、Current は最新にフォールバックします。
// その場合は ErrNotFound を返します。
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeID = id
	if !slices.ContainsFunc(s.entries, func(img domain.GeneratedImage) bool { return img.ID == id }) {
		return ErrNotFound
	}
	return nil
}

// Current は選択中の生成結果を返します。履歴が空なら false です。
func (s *Store) Current() (domain.GeneratedImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return domain.GeneratedImage{}, false
	}
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.entries[i], true
	}
	return s.entries[0], true
}

// ActiveID は選択中の ID をそのまま返します。未選択なら空文字です。
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Get は ID で生成結果を引きます。
func (s *Store) Get(id string) (domain.GeneratedImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.entries[i], nil
	}
	return domain.GeneratedImage{}, ErrNotFound
}

// List は新しい順のコピーを返します。
func (s *Store) List() []domain.GeneratedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Len は履歴の件数を返します。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.entries, func(img domain.GeneratedImage) bool { return img.ID == id })
}
