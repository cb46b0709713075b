package apihttp

import (
	"net/http"

	"github.com/daat21/lumiere/internal/usecase"
)

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watchlists == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "watchlists are not configured")
		return
	}
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	parts := trimPathPrefix(r.URL.Path, "/api/watchlist")
	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		watchlist, err := s.watchlists.Get.Execute(r.Context(), user.ID)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, watchlist)
	case len(parts) == 1 && parts[0] == "movies":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var input usecase.AddToWatchlistInput
		if err := decodeJSONBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		watchlist, err := s.watchlists.Add.Execute(r.Context(), user.ID, input)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, watchlist)
	case len(parts) == 2 && parts[0] == "movies":
		movieID, ok := parseMovieID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid movie id")
			return
		}
		switch r.Method {
		case http.MethodGet:
			exists, err := s.watchlists.Contains.Execute(r.Context(), user.ID, movieID)
			if err != nil {
				writeUseCaseError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"movie_id": movieID, "exists": exists})
		case http.MethodDelete:
			if err := s.watchlists.Remove.Execute(r.Context(), user.ID, movieID); err != nil {
				writeUseCaseError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}
