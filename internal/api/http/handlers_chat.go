package apihttp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/daat21/lumiere/internal/chat"
	"github.com/daat21/lumiere/internal/domain"
)

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// handleChat streams one assistant reply as server-sent events: a "delta"
// per chunk, then "done" with the full text and the referenced titles, or
// "error".
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := chat.ValidateHistory(req.Messages); err != nil {
		writeError(w, chatErrorStatus(err), "invalid_request", err.Error())
		return
	}
	if s.completer == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", chat.ErrNoCompleter.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var reply strings.Builder
	for delta, err := range s.completer.Stream(r.Context(), req.Messages) {
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			s.logger.Warn("chat completion failed", slog.String("error", err.Error()))
			_ = writeSSEEvent(w, flusher, "error", map[string]string{"message": "completion failed"})
			return
		}
		reply.WriteString(delta)
		if err := writeSSEEvent(w, flusher, "delta", map[string]string{"text": delta}); err != nil {
			return
		}
	}

	text := reply.String()
	references := chat.ExtractReferences(text)
	if references == nil {
		references = []string{}
	}
	_ = writeSSEEvent(w, flusher, "done", map[string]any{
		"text":       text,
		"display":    chat.StripMarkers(text),
		"references": references,
	})
}

func (s *Server) handleChatInitial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.catalogReady(w) {
		return
	}
	picks, err := chat.InitialPicks(r.Context(), s.catalog, chat.InitialPickCount, nil)
	if err != nil {
		s.logCatalogError(r, "initial_picks", err)
		writeUseCaseError(w, err)
		return
	}
	if picks == nil {
		picks = []domain.MovieSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"movies": picks})
}
