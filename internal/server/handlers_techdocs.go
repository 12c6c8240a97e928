package server

import (
	"fmt"
	"net/http"
	"strings"

	"docrev/internal/api"
)

func (s *Server) handleCreateTechDocument(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, header, ok := s.multipartFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	doc, err := s.techdocs.Upload(r.Context(), sectionID, header.Filename, s.actorID(r), file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListTechDocuments(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	documents, err := s.techdocs.List(r.Context(), sectionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, documents)
}

func (s *Server) handleGetTechDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	doc, err := s.techdocs.Get(r.Context(), documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateTechDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, header, ok := s.multipartFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	doc, err := s.techdocs.Update(r.Context(), documentID, header.Filename, s.actorID(r), file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleTechDocumentVersions(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	versions, err := s.techdocs.Versions(r.Context(), documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleTechDocumentPreview(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	preview, err := s.techdocs.Preview(r.Context(), documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleTechDocumentFile(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	content, err := s.techdocs.Content(r.Context(), documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	s.serveContent(w, content)
}

func (s *Server) handleDeleteTechDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	mode := strings.TrimSpace(r.URL.Query().Get("mode"))
	switch mode {
	case "", "soft":
		doc, err := s.techdocs.SoftDelete(r.Context(), documentID, s.actorID(r))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: doc.ID, Mode: "soft", Deleted: true})
	case "hard":
		deleted, err := s.techdocs.HardDelete(r.Context(), documentID, s.actorID(r))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if !deleted {
			s.writeErrorReq(w, r, http.StatusNotFound,
				notFoundCode(fmt.Errorf("tech document not found"), ErrCodeTechDocumentNotFound))
			return
		}
		s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: documentID, Mode: "hard", Deleted: true})
	default:
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("invalid delete mode: %s", mode), ErrCodeInvalidQuery))
	}
}
