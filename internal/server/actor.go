package server

import (
	"net/http"
	"strings"

	"docrev/internal/auth"
)

// actorHeader names the request header carrying the acting username.
const actorHeader = "X-Actor"

// actorID resolves the acting user for authorship and audit rows. A
// known username maps to the user's id; an unknown or absent header
// falls back to the raw header value so attribution is never lost.
func (s *Server) actorID(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(actorHeader))
	if raw == "" {
		return ""
	}

	username, err := auth.NormalizeUsername(raw)
	if err != nil {
		return raw
	}
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil || user == nil {
		return raw
	}
	return user.ID
}
