package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shouni/character-forge/pkg/forge"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *forge.Session)

// createSession は新しいセッションを登録して ID を返します。
func (s *Server) createSession() string {
	id := uuid.NewString()
	s.sessions.Set(id, s.newSession(), cache.DefaultExpiration)
	return id
}

// lookupSession はセッションを引き、アクセスがあったものとして有効期限を延ばします。
func (s *Server) lookupSession(id string) (*forge.Session, bool) {
	if id == "" {
		return nil, false
	}
	v, found := s.sessions.Get(id)
	if !found {
		return nil, false
	}
	sess, ok := v.(*forge.Session)
	if !ok {
		return nil, false
	}
	s.sessions.Set(id, sess, cache.DefaultExpiration)
	return sess, true
}

// withSession はヘッダーのセッション ID を解決してからハンドラーを呼びます。
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		sess, ok := s.lookupSession(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found", "")
			return
		}
		next(w, r, sess)
	}
}

// SessionCount は保持しているセッション数を返します。
func (s *Server) SessionCount() int {
	return s.sessions.ItemCount()
}
