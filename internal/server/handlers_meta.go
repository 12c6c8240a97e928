package server

import (
	"net/http"

	"docrev/internal/api"
)

// Version is stamped via -ldflags at release time.
var Version = "dev"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.InfoResponse{Name: "docrev", Version: Version})
}
