package apihttp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	maxProxiedImageBytes = int64(20 * 1024 * 1024) // 20MB
	defaultImageBaseURL  = "https://image.tmdb.org/t/p"
	defaultImageSize     = "w500"
)

var imageSizes = map[string]struct{}{
	"w92": {}, "w154": {}, "w185": {}, "w300": {}, "w342": {}, "w500": {},
	"w780": {}, "w1280": {}, "h632": {}, "original": {},
}

// WithImageBaseURL points the poster proxy at another image host.
func WithImageBaseURL(base string) ServerOption {
	return func(s *Server) {
		s.imageBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

func (s *Server) imageBaseURL() string {
	if s.imageBase != "" {
		return s.imageBase
	}
	return defaultImageBaseURL
}

// handleImageProxy serves TMDB posters. Only the configured image host is
// ever contacted, so the endpoint cannot be used to reach other hosts.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	target, err := buildImageURL(s.imageBaseURL(), r.URL.Query().Get("path"), r.URL.Query().Get("size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid image path")
		return
	}
	req.Header.Set("User-Agent", "lumiere/1.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := s.imageClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		writeError(w, http.StatusBadGateway, "upstream_error", fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
		return
	}
	if resp.ContentLength > maxProxiedImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "image too large")
		return
	}

	limited := io.LimitReader(resp.Body, maxProxiedImageBytes)
	head := make([]byte, 512)
	n, readErr := io.ReadFull(limited, head)
	if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to read image")
		return
	}
	head = head[:n]

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(head)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		writeError(w, http.StatusBadGateway, "upstream_error", "not an image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(head)
	_, _ = io.Copy(w, limited)
}

// buildImageURL joins a TMDB file path such as "/kqjL17yufvn9OVLyXYpvtyrFfak.jpg"
// onto the image base for the requested size.
func buildImageURL(base, filePath, size string) (*url.URL, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, errors.New("missing path")
	}
	if !strings.HasPrefix(filePath, "/") {
		filePath = "/" + filePath
	}
	if strings.Contains(filePath, "..") || strings.ContainsAny(filePath, "?#\\") || strings.Count(filePath, "/") != 1 {
		return nil, errors.New("invalid image path")
	}
	size = strings.TrimSpace(size)
	if size == "" {
		size = defaultImageSize
	}
	if _, ok := imageSizes[size]; !ok {
		return nil, errors.New("unsupported image size")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid image host")
	}
	u.Path = path.Join(u.Path, size, filePath)
	return u, nil
}

func newImageProxyClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: 8 * time.Second, KeepAlive: 30 * time.Second}
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   12 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			if req.URL == nil || len(via) == 0 || req.URL.Host != via[0].URL.Host {
				return errors.New("redirect to another host")
			}
			return nil
		},
	}
}
