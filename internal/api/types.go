// Package api defines the wire types shared by the HTTP server and
// its clients.
package api

import "docrev/internal/models"

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// DocumentResponse pairs a document with its current revision.
type DocumentResponse struct {
	Document models.Document  `json:"document"`
	Current  *models.Revision `json:"current_revision,omitempty"`
}

// ImportError describes one file rejected during a batch import. The
// reserved filename "batch" marks a failure that aborted the whole
// request.
type ImportError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// ImportResult is the stable batch import outcome: how many triples
// were committed and what went wrong per file. The shape is identical
// whether everything succeeded, some files were skipped, or the batch
// rolled back.
type ImportResult struct {
	CreatedCount int           `json:"created_count"`
	Errors       []ImportError `json:"errors"`
}

// PreviewSheet holds the leading rows of one spreadsheet sheet.
type PreviewSheet struct {
	Name      string     `json:"name"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// PreviewResponse is a tech document rendered for inline display: every
// sheet truncated to its leading rows, with the first sheet repeated
// under "sheet" for single-sheet consumers.
type PreviewResponse struct {
	Sheet  *PreviewSheet  `json:"sheet"`
	Sheets []PreviewSheet `json:"sheets"`
}

// DeleteResponse reports the outcome of a delete call.
type DeleteResponse struct {
	ID      string `json:"id"`
	Mode    string `json:"mode"`
	Deleted bool   `json:"deleted"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
