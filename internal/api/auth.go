package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
)

// maxRefreshBody bounds the refresh request body; it only carries a key.
const maxRefreshBody = 4 << 10

// RefreshRequest is the body of POST /refresh-solan-news.
type RefreshRequest struct {
	Key string `json:"key"`
}

// authorizeRefresh reports whether the request carries the refresh secret.
// A missing or malformed body is treated as a wrong key.
func (s *Server) authorizeRefresh(r *http.Request) bool {
	var req RefreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRefreshBody)).Decode(&req); err != nil {
		s.logger.Debug("unreadable refresh body", "error", err)
		return false
	}
	if len(s.secret) == 0 || req.Key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(req.Key), s.secret) == 1
}
