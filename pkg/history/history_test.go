package history

import (
	"testing"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_Record(t *testing.T) {
	at := time.Date(2026, 10, 17, 9, 30, 0, 123_000_000, time.UTC)
	s := NewStore(WithClock(fixedClock(at)))

	p1 := domain.DefaultParams()
	p1.Prompt = "first"
	first := s.Record("data:image/png;base64,AAAA", p1)

	p2 := domain.DefaultParams()
	p2.Prompt = "second"
	second := s.Record("data:image/png;base64,BBBB", p2)

	t.Run("新しいものが先頭に来て選択されるのだ", func(t *testing.T) {
		list := s.List()
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)

		cur, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, second.ID, cur.ID)
	})

	t.Run("同じ時刻でも ID は重ならないのだ", func(t *testing.T) {
		assert.Equal(t, "1792229400123", first.ID)
		assert.Equal(t, "1792229400124", second.ID)
	})

	t.Run("プロンプトと設定はスナップショットとして保持されるのだ", func(t *testing.T) {
		p1.Prompt = "changed later"
		got, err := s.Get(first.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Prompt)
		assert.Equal(t, "first", got.Params.Prompt)
		assert.Equal(t, at, got.Timestamp)
	})
}

func TestStore_SelectAndCurrent(t *testing.T) {
	now := time.UnixMilli(1_000)
	s := NewStore(WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	t.Run("空の履歴では Current は false なのだ", func(t *testing.T) {
		_, ok := s.Current()
		assert.False(t, ok)
		assert.Equal(t, 0, s.Len())
	})

	a := s.Record("data:image/png;base64,QQ==", domain.DefaultParams())
	b := s.Record("data:image/png;base64,Qg==", domain.DefaultParams())

	t.Run("履歴にある ID を選択できるのだ", func(t *testing.T) {
		require.NoError(t, s.Select(a.ID))
		cur, _ := s.Current()
		assert.Equal(t, a.ID, cur.ID)
		assert.Equal(t, a.ID, s.ActiveID())
	})

	t.Run("履歴にない ID は ErrNotFound で最新にフォールバックするのだ", func(t *testing.T) {
		assert.ErrorIs(t, s.Select("nope"), ErrNotFound)
		cur, _ := s.Current()
		assert.Equal(t, b.ID, cur.ID)
		assert.Equal(t, "nope", s.ActiveID())
	})

	t.Run("選択が無効なら最新にフォールバックするのだ", func(t *testing.T) {
		s.activeID = "gone"
		cur, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, b.ID, cur.ID)

		s.activeID = ""
		cur, _ = s.Current()
		assert.Equal(t, b.ID, cur.ID)
	})

	t.Run("Get は未知の ID で ErrNotFound を返すのだ", func(t *testing.T) {
		_, err := s.Get("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
