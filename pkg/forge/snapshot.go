package forge

import (
	"time"

	"github.com/shouni/character-forge/pkg/domain"
)

// ReferenceInfo はスナップショット用の参照画像情報です。バイナリは含みません。
type ReferenceInfo struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// HistoryEntry はスナップショット用の履歴情報です。画像本体は含みません。
type HistoryEntry struct {
	ID        string                  `json:"id"`
	Prompt    string                  `json:"prompt"`
	Timestamp time.Time               `json:"timestamp"`
	Params    domain.GenerationParams `json:"params"`
}

// Snapshot はある時点のセッション状態です。
type Snapshot struct {
	References   []ReferenceInfo         `json:"references"`
	Params       domain.GenerationParams `json:"params"`
	History      []HistoryEntry          `json:"history"`
	CurrentID    string                  `json:"currentId,omitempty"`
	IsGenerating bool                    `json:"isGenerating"`
	CanGenerate  bool                    `json:"canGenerate"`
	Error        *Notice                 `json:"error,omitempty"`
}

// State は現在の状態のスナップショットを返します。
func (s *Session) State() Snapshot {
	s.mu.Lock()
	params := s.params
	generating := s.generating
	var notice *Notice
	if s.notice != nil {
		n := *s.notice
		notice = &n
	}
	s.mu.Unlock()

	refs := s.refs.List()
	snap := Snapshot{
		References:   make([]ReferenceInfo, 0, len(refs)),
		Params:       params,
		History:      []HistoryEntry{},
		IsGenerating: generating,
		CanGenerate:  !generating && params.Ready(len(refs)),
		Error:        notice,
	}
	for _, r := range refs {
		snap.References = append(snap.References, ReferenceInfo{ID: r.ID, MimeType: r.MimeType, Size: r.Size()})
	}
	for _, img := range s.history.List() {
		snap.History = append(snap.History, HistoryEntry{
			ID:        img.ID,
			Prompt:    img.Prompt,
			Timestamp: img.Timestamp,
			Params:    img.Params,
		})
	}
	if cur, ok := s.history.Current(); ok {
		snap.CurrentID = cur.ID
	}
	return snap
}
