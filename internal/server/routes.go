package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Documents and revisions.
	mux.HandleFunc("POST /v1/items/{id}/documents", s.handleCreateDocument)
	mux.HandleFunc("GET /v1/documents", s.handleListDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("POST /v1/documents/{id}/revisions", s.handleAppendRevision)
	mux.HandleFunc("GET /v1/documents/{id}/revisions", s.handleListRevisions)
	mux.HandleFunc("GET /v1/documents/{id}/revisions/current", s.handleCurrentRevision)
	mux.HandleFunc("GET /v1/documents/{id}/revisions/{revision_id}/file", s.handleRevisionFile)

	// Notifications.
	mux.HandleFunc("GET /v1/users/{id}/notifications", s.handleListNotifications)
	mux.HandleFunc("POST /v1/notifications/{id}/read", s.handleMarkNotificationRead)

	// Batch import.
	mux.HandleFunc("POST /v1/projects/{id}/import", s.handleImport)

	// Tech documents.
	mux.HandleFunc("POST /v1/sections/{id}/tech-documents", s.handleCreateTechDocument)
	mux.HandleFunc("GET /v1/sections/{id}/tech-documents", s.handleListTechDocuments)
	mux.HandleFunc("GET /v1/tech-documents/{id}", s.handleGetTechDocument)
	mux.HandleFunc("PUT /v1/tech-documents/{id}", s.handleUpdateTechDocument)
	mux.HandleFunc("GET /v1/tech-documents/{id}/versions", s.handleTechDocumentVersions)
	mux.HandleFunc("GET /v1/tech-documents/{id}/preview", s.handleTechDocumentPreview)
	mux.HandleFunc("GET /v1/tech-documents/{id}/file", s.handleTechDocumentFile)
	mux.HandleFunc("DELETE /v1/tech-documents/{id}", s.handleDeleteTechDocument)

	return mux
}
