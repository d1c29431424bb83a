package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/character-forge/pkg/export"
	"github.com/shouni/character-forge/pkg/forge"
	"github.com/shouni/character-forge/pkg/generator"
	"github.com/shouni/character-forge/pkg/history"
	"github.com/shouni/character-forge/pkg/reference"
)

var errInvalidJSON = errors.New("invalid JSON body")

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type optionsResponse struct {
	AspectRatios   []option                `json:"aspectRatios"`
	RenderModes    []string                `json:"renderModes"`
	LightingStyles []string                `json:"lightingStyles"`
	Resolutions    []option                `json:"resolutions"`
	CameraAngles   []string                `json:"cameraAngles"`
	Defaults       domain.GenerationParams `json:"defaults"`
}

type addReferencesRequest struct {
	DataURIs []string `json:"dataUris"`
	URLs     []string `json:"urls"`
}

type addReferencesResponse struct {
	Added      []forge.ReferenceInfo `json:"added"`
	References []forge.ReferenceInfo `json:"references"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.SessionCount()})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResponse{
		CameraAngles: domain.CameraAngles,
		Defaults:     s.defaults,
	}
	for _, a := range domain.AspectRatios {
		resp.AspectRatios = append(resp.AspectRatios, option{Value: string(a), Label: a.Label()})
	}
	for _, m := range domain.RenderModes {
		resp.RenderModes = append(resp.RenderModes, string(m))
	}
	for _, l := range domain.LightingStyles {
		resp.LightingStyles = append(resp.LightingStyles, string(l))
	}
	for _, res := range domain.Resolutions {
		resp.Resolutions = append(resp.Resolutions, option{Value: string(res), Label: res.Label()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.createSession()
	slog.InfoContext(r.Context(), "セッションを作成しました", "session_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	s.sessions.Delete(strings.TrimSpace(r.Header.Get(SessionHeader)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleAddReferences(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	sources, err := parseSources(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if len(sources) == 0 {
		writeError(w, http.StatusBadRequest, "no reference images in request", "")
		return
	}

	added, err := sess.AddReferences(r.Context(), sources...).Wait(r.Context())
	if err != nil {
		writeError(w, http.StatusRequestTimeout, err.Error(), "")
		return
	}

	resp := addReferencesResponse{
		Added:      make([]forge.ReferenceInfo, 0, len(added)),
		References: sess.State().References,
	}
	for _, ref := range added {
		resp.Added = append(resp.Added, forge.ReferenceInfo{ID: ref.ID, MimeType: ref.MimeType, Size: ref.Size()})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// parseSources は multipart の files フィールド、または JSON の dataUris/urls から入力元を作ります。
func parseSources(w http.ResponseWriter, r *http.Request) ([]reference.Source, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(MaxUploadMemory); err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		var sources []reference.Source
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
			}
			sources = append(sources, reference.FromBytes(fh.Filename, data))
		}
		return sources, nil
	}

	var req addReferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	sources := make([]reference.Source, 0, len(req.DataURIs)+len(req.URLs))
	for _, uri := range req.DataURIs {
		sources = append(sources, reference.FromDataURI(uri))
	}
	for _, u := range req.URLs {
		sources = append(sources, reference.FromURL(u))
	}
	return sources, nil
}

func (s *Server) handleRemoveReference(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	if !sess.RemoveReference(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "reference not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var p domain.GenerationParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if err := sess.SetParams(p.WithDefaults(s.defaults)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, sess.Params())
}

// handlePatchParams は本文に含まれる項目だけを現在の設定に上書きします。
func (s *Server) handlePatchParams(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", "")
		return
	}

	updated, err := sess.UpdateParams(func(p *domain.GenerationParams) error {
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(p); err != nil {
			return errInvalidJSON
		}
		return nil
	})
	if errors.Is(err, errInvalidJSON) {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	// 生成は WriteTimeout より長くかかることがある
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	// 何もしない呼び出しでは受付枠を消費しない
	err := sess.CheckReady(r.Context())
	if err == nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
		return
	}

	var img *domain.GeneratedImage
	if err == nil {
		img, err = sess.Generate(r.Context())
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, forge.HistoryEntry{
			ID:        img.ID,
			Prompt:    img.Prompt,
			Timestamp: img.Timestamp,
			Params:    img.Params,
		})
	case errors.Is(err, forge.ErrValidationSkipped):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, forge.ErrInFlight):
		writeError(w, http.StatusConflict, err.Error(), "")
	default:
		notice := forge.NoticeFor(err)
		status := http.StatusBadGateway
		if notice.Kind == generator.KindAuthRefreshed {
			status = http.StatusUnauthorized
		}
		writeError(w, status, notice.Message, string(notice.Kind))
	}
}

func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	sess.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectHistory(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	if err := sess.SelectHistory(r.PathValue("id")); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleHistoryImage(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	img, err := sess.HistoryImage(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	writeImage(w, &img, "")
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *forge.Session) {
	variant, err := export.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	img, ok := sess.Current()
	if !ok {
		writeError(w, http.StatusNotFound, export.ErrNothingToExport.Error(), "")
		return
	}
	writeImage(w, &img, export.FileName(variant, s.now()))
}

// writeImage は生成結果のバイナリをそのまま返します。filename があれば添付ファイルとして返します。
func writeImage(w http.ResponseWriter, img *domain.GeneratedImage, filename string) {
	mimeType, data, err := export.Decode(img)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("画像の送信に失敗しました", "error", err)
	}
}
