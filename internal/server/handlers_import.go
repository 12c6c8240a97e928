package server

import (
	"fmt"
	"net/http"
	"strings"
)

// maxImportBatchFiles bounds one batch request.
const maxImportBatchFiles = 200

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	if !s.acquireLimiter(s.importLimiter, w, r, "import") {
		return
	}
	defer s.releaseLimiter(s.importLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes*maxImportBatchFiles+s.multipartMemory)
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) > maxImportBatchFiles {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("batch exceeds %d files", maxImportBatchFiles), ErrCodeInvalidArgument))
		return
	}

	files := make([]ImportFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("open upload %s: %w", header.Filename, err), ErrCodeInvalidArgument))
			return
		}
		defer file.Close()
		files = append(files, ImportFile{Filename: header.Filename, Content: file})
	}

	result, err := s.imports.Run(r.Context(), projectID, ImportInput{
		SectionID:     strings.TrimSpace(r.FormValue("section_id")),
		ResponsibleID: strings.TrimSpace(r.FormValue("responsible_id")),
		ActorID:       s.actorID(r),
	}, files)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}
