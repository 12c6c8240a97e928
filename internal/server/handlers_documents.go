package server

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"docrev/internal/api"
)

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	itemID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, header, ok := s.multipartFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	doc, rev, err := s.documents.CreateDocument(r.Context(), CreateDocumentInput{
		ItemID:   itemID,
		Title:    firstNonEmpty(r.FormValue("title"), header.Filename),
		Type:     strings.TrimSpace(r.FormValue("type")),
		Filename: header.Filename,
		AuthorID: s.actorID(r),
	}, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.DocumentResponse{Document: *doc, Current: rev})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := s.documents.ListDocuments(r.Context(),
		strings.TrimSpace(r.URL.Query().Get("item_id")), queryBool(r, "show_deleted"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, documents)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	doc, current, err := s.documents.GetDocument(r.Context(), documentID, queryBool(r, "show_deleted"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DocumentResponse{Document: *doc, Current: current})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	mode := strings.TrimSpace(r.URL.Query().Get("mode"))
	switch mode {
	case "", "soft":
		doc, err := s.documents.SoftDelete(r.Context(), documentID, s.actorID(r))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: doc.ID, Mode: "soft", Deleted: true})
	case "hard":
		deleted, err := s.documents.HardDelete(r.Context(), documentID, s.actorID(r))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if !deleted {
			s.writeErrorReq(w, r, http.StatusNotFound,
				notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound))
			return
		}
		s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: documentID, Mode: "hard", Deleted: true})
	default:
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("invalid delete mode: %s", mode), ErrCodeInvalidQuery))
	}
}

func (s *Server) handleAppendRevision(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, header, ok := s.multipartFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rev, err := s.documents.AppendRevision(r.Context(), documentID, AppendRevisionInput{
		Filename:   header.Filename,
		ChangeNote: strings.TrimSpace(r.FormValue("change_note")),
		AuthorID:   s.actorID(r),
	}, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, rev)
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	revisions, err := s.documents.ListRevisions(r.Context(), documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, revisions)
}

func (s *Server) handleCurrentRevision(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	current, err := s.documents.CurrentRevision(r.Context(), documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleRevisionFile(w http.ResponseWriter, r *http.Request) {
	documentID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	revisionID := strings.TrimSpace(r.PathValue("revision_id"))

	content, err := s.documents.RevisionContent(r.Context(), documentID, revisionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	s.serveContent(w, content)
}

// serveContent streams a blob with download headers set from metadata.
func (s *Server) serveContent(w http.ResponseWriter, content *RevisionContent) {
	w.Header().Set("Content-Type", content.MimeType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": content.Filename}))
	if content.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	}
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Error("stream blob", "error", err)
	}
}

// multipartFile parses the multipart form and returns the "file" part.
func (s *Server) multipartFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	// Leave headroom over the blob limit for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+s.multipartMemory)
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return nil, nil, false
	}
	return file, header, true
}
