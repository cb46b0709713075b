package apihttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/daat21/lumiere/internal/chat"
	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/providers/tmdb"
	"github.com/daat21/lumiere/internal/usecase"
)

const maxBodyBytes = 1 << 20

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeUseCaseError maps domain and usecase errors onto HTTP statuses.
func writeUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", publicMessage(err, "not authenticated"))
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", publicMessage(err, "not allowed"))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", publicMessage(err, "resource already exists"))
	case errors.Is(err, tmdb.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "not_configured", "movie metadata provider is not configured")
	case errors.Is(err, usecase.ErrUpstream), isProviderError(err):
		writeError(w, http.StatusBadGateway, "upstream_error", "movie metadata provider failed")
	case errors.Is(err, usecase.ErrRepository):
		writeError(w, http.StatusInternalServerError, "repository_error", "storage failure")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func isProviderError(err error) bool {
	var status *tmdb.StatusError
	return errors.As(err, &status)
}

// publicMessage returns the last line of a joined error so the client sees
// the specific reason rather than the sentinel.
func publicMessage(err error, fallback string) string {
	msg := strings.TrimSpace(err.Error())
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = msg[i+1:]
	}
	if msg == "" {
		return fallback
	}
	return msg
}

func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrEmptyHistory), errors.Is(err, chat.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrNoCompleter):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrSessionBusy):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func parseNonNegativeInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func parseMovieID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
