package apihttp

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/usecase"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) accountsReady(w http.ResponseWriter) bool {
	if s.accounts == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "accounts are not configured")
		return false
	}
	return true
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.accountsReady(w) {
		return
	}
	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/auth/"), "/") {
	case "register":
		s.handleRegister(w, r)
	case "login":
		s.handleLogin(w, r)
	case "refresh":
		s.handleRefresh(w, r)
	case "logout":
		s.clearSessionCookies(w)
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input usecase.RegisterInput
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	user, err := s.accounts.Register.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	s.logger.Info("user registered", slog.String("userId", string(user.ID)))
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin accepts a JSON body or the OAuth2 password form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
			return
		}
		input.Username = r.PostForm.Get("username")
		input.Password = r.PostForm.Get("password")
	} else if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	session, err := s.accounts.Login.Execute(r.Context(), input.Username, input.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			s.logger.Warn("login failed", slog.String("error", err.Error()))
		}
		writeUseCaseError(w, err)
		return
	}
	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var input refreshRequest
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	token := strings.TrimSpace(input.RefreshToken)
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "refresh token is required")
		return
	}
	session, err := s.accounts.Refresh.Execute(r.Context(), token)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) setSessionCookies(w http.ResponseWriter, session usecase.Session) {
	http.SetCookie(w, s.cookie(accessCookie, session.AccessToken, s.cookies.AccessTTL))
	http.SetCookie(w, s.cookie(refreshCookie, session.RefreshToken, s.cookies.RefreshTTL))
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		c := s.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (s *Server) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}

// bearerToken reads the access token from the Authorization header, falling
// back to the session cookie.
func bearerToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// currentUser authenticates the request and writes the error response when
// it fails.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	if !s.accountsReady(w) {
		return domain.User{}, false
	}
	token := bearerToken(r)
	if token == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return domain.User{}, false
	}
	user, err := s.accounts.Authenticate.Execute(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeUseCaseError(w, err)
		return domain.User{}, false
	}
	return user, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/me"), "/") {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, user)
		case http.MethodPatch:
			var input usecase.ProfileInput
			if err := decodeJSONBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			updated, err := s.accounts.UpdateProfile.Execute(r.Context(), user.ID, input)
			if err != nil {
				writeUseCaseError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "password":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var input usecase.ChangePasswordInput
		if err := decodeJSONBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := s.accounts.ChangePassword.Execute(r.Context(), user.ID, input); err != nil {
			writeUseCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
	case "reviews":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleListUserReviews(w, r, user)
	default:
		http.NotFound(w, r)
	}
}
