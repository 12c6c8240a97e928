package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"docrev/internal/api"
	"docrev/internal/filestore"
	"docrev/internal/models"
	"docrev/internal/store"
)

var techMimeTypes = map[string]string{
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
	"xls":  "application/vnd.ms-excel",
}

// TechDocService manages the spreadsheet document variant: one row per
// document, an integer version counter, and superseded versions moved
// into an archive table on update.
type TechDocService struct {
	store   *store.Store
	files   *filestore.Store
	auditor Auditor
	logger  *slog.Logger

	maxUploadBytes int64
}

// NewTechDocService constructs a TechDocService.
func NewTechDocService(st *store.Store, files *filestore.Store, auditor Auditor, maxUploadBytes int64, logger *slog.Logger) *TechDocService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TechDocService{store: st, files: files, auditor: auditor, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Upload creates a tech document at version 1 in a section.
func (s *TechDocService) Upload(ctx context.Context, sectionID, filename, actorID string, content io.Reader) (*models.TechDocument, error) {
	if content == nil {
		return nil, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired)
	}
	section, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if section == nil {
		return nil, notFoundCode(fmt.Errorf("section not found"), ErrCodeSectionNotFound)
	}

	saved, err := s.files.Save(ctx, filestore.KindTech, filename, content, s.maxUploadBytes)
	if err != nil {
		return nil, classifySaveError(err)
	}

	doc := &models.TechDocument{
		ID:        uuid.NewString(),
		SectionID: sectionID,
		Filename:  filename,
		StorageID: saved.ID.String(),
		Extension: saved.Extension,
		SizeBytes: saved.SizeBytes,
		SHA256:    saved.SHA256,
		Version:   1,
		IsCurrent: true,
		CreatedBy: actorID,
	}
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		return tx.CreateTechDocument(ctx, doc)
	})
	if err != nil {
		s.discardBlob(ctx, saved)
		return nil, storeFailure(err)
	}

	s.audit(ctx, actorID, "tech_document.create", map[string]any{"tech_document_id": doc.ID})
	return doc, nil
}

// Update replaces a tech document's content. The previous payload is
// archived as a version row and its blob stays on disk; only the head
// row points at the new blob, with the counter bumped.
func (s *TechDocService) Update(ctx context.Context, documentID, filename, actorID string, content io.Reader) (*models.TechDocument, error) {
	if content == nil {
		return nil, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired)
	}
	doc, err := s.store.GetTechDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil || doc.Deleted {
		return nil, notFoundCode(fmt.Errorf("tech document not found"), ErrCodeTechDocumentNotFound)
	}

	saved, err := s.files.Save(ctx, filestore.KindTech, filename, content, s.maxUploadBytes)
	if err != nil {
		return nil, classifySaveError(err)
	}

	updated := *doc
	updated.Filename = filename
	updated.StorageID = saved.ID.String()
	updated.Extension = saved.Extension
	updated.SizeBytes = saved.SizeBytes
	updated.SHA256 = saved.SHA256
	updated.Version = doc.Version + 1

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		archived := &models.TechDocumentVersion{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Version:    doc.Version,
			StorageID:  doc.StorageID,
			Filename:   doc.Filename,
			Extension:  doc.Extension,
			SizeBytes:  doc.SizeBytes,
			SHA256:     doc.SHA256,
			CreatedBy:  actorID,
		}
		if err := tx.ArchiveTechVersion(ctx, archived); err != nil {
			return err
		}
		return tx.ReplaceTechDocumentContent(ctx, &updated)
	})
	if err != nil {
		s.discardBlob(ctx, saved)
		return nil, storeFailure(err)
	}

	s.audit(ctx, actorID, "tech_document.update", map[string]any{
		"tech_document_id": doc.ID,
		"version":          updated.Version,
	})
	return &updated, nil
}

// Get returns one visible tech document.
func (s *TechDocService) Get(ctx context.Context, documentID string) (*models.TechDocument, error) {
	doc, err := s.store.GetTechDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil || doc.Deleted {
		return nil, notFoundCode(fmt.Errorf("tech document not found"), ErrCodeTechDocumentNotFound)
	}
	return doc, nil
}

// List lists current tech documents in a section.
func (s *TechDocService) List(ctx context.Context, sectionID string) ([]models.TechDocument, error) {
	section, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if section == nil {
		return nil, notFoundCode(fmt.Errorf("section not found"), ErrCodeSectionNotFound)
	}
	documents, err := s.store.ListTechDocuments(ctx, sectionID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return documents, nil
}

// Versions lists archived versions of a tech document, newest first.
func (s *TechDocService) Versions(ctx context.Context, documentID string) ([]models.TechDocumentVersion, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListTechVersions(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return versions, nil
}

// Content opens the current payload for download.
func (s *TechDocService) Content(ctx context.Context, documentID string) (*RevisionContent, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	storageID, err := uuid.Parse(doc.StorageID)
	if err != nil {
		return nil, internalError(fmt.Errorf("tech document has invalid storage id"))
	}
	rc, err := s.files.Open(ctx, filestore.KindTech, storageID, doc.Extension)
	if err != nil {
		if errors.Is(err, filestore.ErrBlobNotFound) {
			return nil, notFoundCode(fmt.Errorf("tech document content not found"), ErrCodeTechDocumentNotFound)
		}
		return nil, internalError(err)
	}

	mimeType := techMimeTypes[doc.Extension]
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &RevisionContent{
		Reader:    rc,
		SizeBytes: doc.SizeBytes,
		MimeType:  mimeType,
		Filename:  doc.Filename,
	}, nil
}

// previewMaxRows caps how many rows of each sheet a preview carries.
const previewMaxRows = 50

// Preview parses the current payload as a spreadsheet and returns the
// leading rows of every sheet. The blob itself is untouched; a payload
// that is not a readable workbook is a client error.
func (s *TechDocService) Preview(ctx context.Context, documentID string) (*api.PreviewResponse, error) {
	content, err := s.Content(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer content.Reader.Close()

	workbook, err := excelize.OpenReader(content.Reader)
	if err != nil {
		return nil, badRequestCode(fmt.Errorf("parse spreadsheet: %w", err), ErrCodeInvalidFileFormat)
	}
	defer workbook.Close()

	preview := &api.PreviewResponse{Sheets: []api.PreviewSheet{}}
	for _, name := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(name)
		if err != nil {
			return nil, badRequestCode(fmt.Errorf("read sheet %s: %w", name, err), ErrCodeInvalidFileFormat)
		}
		total := len(rows)
		if total > previewMaxRows {
			rows = rows[:previewMaxRows]
		}
		if rows == nil {
			rows = [][]string{}
		}
		preview.Sheets = append(preview.Sheets, api.PreviewSheet{Name: name, Rows: rows, TotalRows: total})
	}
	if len(preview.Sheets) > 0 {
		preview.Sheet = &preview.Sheets[0]
	}
	return preview, nil
}

// SoftDelete hides a tech document; repeat calls are no-op successes.
func (s *TechDocService) SoftDelete(ctx context.Context, documentID, actorID string) (*models.TechDocument, error) {
	doc, err := s.store.GetTechDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil {
		return nil, notFoundCode(fmt.Errorf("tech document not found"), ErrCodeTechDocumentNotFound)
	}
	if doc.Deleted {
		return doc, nil
	}

	if err := s.store.SoftDeleteTechDocument(ctx, documentID, actorID, time.Now().UTC()); err != nil {
		return nil, storeFailure(err)
	}
	s.audit(ctx, actorID, "tech_document.soft_delete", map[string]any{"tech_document_id": documentID})

	doc, err = s.store.GetTechDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return doc, nil
}

// HardDelete removes the head blob, every archived version's blob, and
// the row. Missing blobs are tolerated so a retry after a partial
// failure still completes.
func (s *TechDocService) HardDelete(ctx context.Context, documentID, actorID string) (bool, error) {
	doc, err := s.store.GetTechDocument(ctx, documentID)
	if err != nil {
		return false, storeFailure(err)
	}
	if doc == nil {
		return false, nil
	}

	versions, err := s.store.ListTechVersions(ctx, documentID)
	if err != nil {
		return false, storeFailure(err)
	}

	type blobRef struct {
		storageID string
		extension string
	}
	refs := []blobRef{{doc.StorageID, doc.Extension}}
	for _, v := range versions {
		refs = append(refs, blobRef{v.StorageID, v.Extension})
	}
	for _, ref := range refs {
		storageID, err := uuid.Parse(ref.storageID)
		if err != nil {
			continue
		}
		if err := s.files.Delete(ctx, filestore.KindTech, storageID, ref.extension); err != nil {
			return false, internalError(fmt.Errorf("delete tech document blob: %w", err))
		}
	}

	if err := s.store.HardDeleteTechDocument(ctx, documentID); err != nil {
		return false, storeFailure(err)
	}
	s.audit(ctx, actorID, "tech_document.hard_delete", map[string]any{"tech_document_id": documentID})
	return true, nil
}

func (s *TechDocService) discardBlob(ctx context.Context, saved filestore.SaveResult) {
	if err := s.files.Delete(ctx, filestore.KindTech, saved.ID, saved.Extension); err != nil {
		s.logger.Error("remove orphan blob", "storage_id", saved.ID, "error", err)
	}
}

func (s *TechDocService) audit(ctx context.Context, actorID, action string, payload map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, actorID, action, payload)
}
