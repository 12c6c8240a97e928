package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docrev/internal/filestore"
	"docrev/internal/models"
	"docrev/internal/revision"
	"docrev/internal/store"
)

const drawingMimeType = "application/pdf"

// DocumentService owns the document/revision aggregate: creation with
// the initial "-" revision, append with label sequencing and the
// current-flag flip, downloads, and soft/hard delete. It keeps the
// relational rows and the blob store consistent: a blob is only ever
// referenced by a committed revision row, and failure paths remove the
// blob written during the attempt.
type DocumentService struct {
	store   *store.Store
	files   *filestore.Store
	auditor Auditor
	logger  *slog.Logger

	maxUploadBytes int64

	// Appends to the same document serialize on an in-process lock so
	// the read-compute-write of the label and current flag runs alone.
	// Appends to different documents proceed in parallel.
	locks keyedLocks
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(st *store.Store, files *filestore.Store, auditor Auditor, maxUploadBytes int64, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		store:          st,
		files:          files,
		auditor:        auditor,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateDocumentInput describes a document upload.
type CreateDocumentInput struct {
	ItemID   string
	Title    string
	Type     string
	Filename string
	AuthorID string
}

// AppendRevisionInput describes a revision upload.
type AppendRevisionInput struct {
	Filename   string
	ChangeNote string
	AuthorID   string
}

// RevisionContent is an open download stream plus response metadata.
type RevisionContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MimeType  string
	Filename  string
}

// CreateDocument validates and stores the payload, then inserts the
// document row together with its initial revision (label "-", current)
// in one transaction. A transaction failure removes the blob before
// the error is returned.
func (s *DocumentService) CreateDocument(ctx context.Context, in CreateDocumentInput, content io.Reader) (*models.Document, *models.Revision, error) {
	if content == nil {
		return nil, nil, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, nil, badRequestCode(fmt.Errorf("title is required"), ErrCodeMissingRequired)
	}

	item, err := s.store.GetItem(ctx, in.ItemID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if item == nil {
		return nil, nil, notFoundCode(fmt.Errorf("item not found"), ErrCodeItemNotFound)
	}
	adminIDs, err := s.store.ListActiveAdminIDs(ctx)
	if err != nil {
		return nil, nil, storeFailure(err)
	}

	buffered := bufio.NewReader(content)
	if err := filestore.CheckPDF(in.Filename, buffered); err != nil {
		return nil, nil, badRequestCode(err, ErrCodeInvalidFileFormat)
	}

	saved, err := s.files.Save(ctx, filestore.KindDrawing, in.Filename, buffered, s.maxUploadBytes)
	if err != nil {
		return nil, nil, classifySaveError(err)
	}

	doc := &models.Document{
		ID:     uuid.NewString(),
		ItemID: in.ItemID,
		Title:  title,
		Type:   strings.TrimSpace(in.Type),
	}
	rev := initialRevision(doc.ID, in.Filename, in.AuthorID, saved)

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return err
		}
		if err := tx.CreateRevision(ctx, rev); err != nil {
			return err
		}
		return queueRevisionNotifications(ctx, tx, doc, rev, item.ResponsibleID, adminIDs)
	})
	if err != nil {
		s.discardBlob(ctx, saved)
		return nil, nil, storeFailure(err)
	}

	s.audit(ctx, in.AuthorID, "document.create", map[string]any{
		"document_id": doc.ID,
		"item_id":     doc.ItemID,
	})
	return doc, rev, nil
}

// AppendRevision adds the next revision to a document. The upload needs
// a change note, the label advances along the fixed sequence, and the
// previous current revision loses its flag in the same transaction that
// inserts the new one. The per-document lock is held from before the
// current-revision read until the transaction finishes.
func (s *DocumentService) AppendRevision(ctx context.Context, documentID string, in AppendRevisionInput, content io.Reader) (*models.Revision, error) {
	if content == nil {
		return nil, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired)
	}
	if strings.TrimSpace(in.ChangeNote) == "" {
		return nil, badRequestCode(fmt.Errorf("change note is required"), ErrCodeChangeNoteRequired)
	}

	unlock := s.locks.lock(documentID)
	defer unlock()

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil || doc.Deleted {
		return nil, notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound)
	}

	// Fan-out inputs, read before the transaction claims the connection.
	item, err := s.store.GetItem(ctx, doc.ItemID)
	if err != nil {
		return nil, storeFailure(err)
	}
	responsibleID := ""
	if item != nil {
		responsibleID = item.ResponsibleID
	}
	adminIDs, err := s.store.ListActiveAdminIDs(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	buffered := bufio.NewReader(content)
	if err := filestore.CheckPDF(in.Filename, buffered); err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidFileFormat)
	}

	saved, err := s.files.Save(ctx, filestore.KindDrawing, in.Filename, buffered, s.maxUploadBytes)
	if err != nil {
		return nil, classifySaveError(err)
	}

	rev := &models.Revision{
		ID:               uuid.NewString(),
		DocumentID:       documentID,
		StorageID:        saved.ID.String(),
		OriginalFilename: in.Filename,
		MimeType:         drawingMimeType,
		SizeBytes:        saved.SizeBytes,
		SHA256:           saved.SHA256,
		IsCurrent:        true,
		ChangeNote:       strings.TrimSpace(in.ChangeNote),
		AuthorID:         in.AuthorID,
	}

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		current, err := tx.CurrentRevision(ctx, documentID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("document has no current revision")
		}

		next, err := revision.Next(current.Label)
		if err != nil {
			if errors.Is(err, revision.ErrLimitReached) {
				return conflictCode(err, ErrCodeRevisionLimit)
			}
			return err
		}
		rev.Label = next

		if err := tx.ClearCurrentFlag(ctx, current.ID); err != nil {
			return err
		}
		if err := tx.CreateRevision(ctx, rev); err != nil {
			return err
		}
		return queueRevisionNotifications(ctx, tx, doc, rev, responsibleID, adminIDs)
	})
	if err != nil {
		s.discardBlob(ctx, saved)
		var apiErr apiError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		// A unique-index failure here means another writer got the
		// current flag first.
		if isUniqueConstraint(err) {
			return nil, conflictCode(fmt.Errorf("concurrent revision update"), ErrCodeConflict)
		}
		return nil, storeFailure(err)
	}

	s.audit(ctx, in.AuthorID, "revision.append", map[string]any{
		"document_id":    documentID,
		"revision_label": rev.Label,
	})
	return rev, nil
}

// GetDocument returns one visible document with its current revision.
func (s *DocumentService) GetDocument(ctx context.Context, documentID string, showDeleted bool) (*models.Document, *models.Revision, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if doc == nil || (doc.Deleted && !showDeleted) {
		return nil, nil, notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound)
	}
	current, err := s.store.GetCurrentRevision(ctx, documentID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	return doc, current, nil
}

// ListDocuments lists documents, optionally scoped to one item.
func (s *DocumentService) ListDocuments(ctx context.Context, itemID string, showDeleted bool) ([]models.Document, error) {
	documents, err := s.store.ListDocuments(ctx, itemID, showDeleted)
	if err != nil {
		return nil, storeFailure(err)
	}
	return documents, nil
}

// CurrentRevision resolves a visible document's current revision.
func (s *DocumentService) CurrentRevision(ctx context.Context, documentID string) (*models.Revision, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil || doc.Deleted {
		return nil, notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound)
	}
	current, err := s.store.GetCurrentRevision(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if current == nil {
		return nil, notFoundCode(fmt.Errorf("document has no current revision"), ErrCodeRevisionNotFound)
	}
	return current, nil
}

// ListRevisions lists all revisions of a visible document, newest first.
func (s *DocumentService) ListRevisions(ctx context.Context, documentID string) ([]models.Revision, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil || doc.Deleted {
		return nil, notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound)
	}
	revisions, err := s.store.ListRevisions(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return revisions, nil
}

// RevisionContent opens one revision's blob for download. The served
// filename is reconstructed from metadata as {part_number}_{label}.pdf;
// the on-disk name is never exposed.
func (s *DocumentService) RevisionContent(ctx context.Context, documentID, revisionID string) (*RevisionContent, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil || doc.Deleted {
		return nil, notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound)
	}

	var rev *models.Revision
	if revisionID == "current" || revisionID == "" {
		rev, err = s.store.GetCurrentRevision(ctx, documentID)
	} else {
		rev, err = s.store.GetRevision(ctx, documentID, revisionID)
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	if rev == nil {
		return nil, notFoundCode(fmt.Errorf("revision not found"), ErrCodeRevisionNotFound)
	}

	storageID, err := uuid.Parse(rev.StorageID)
	if err != nil {
		return nil, internalError(fmt.Errorf("revision has invalid storage id"))
	}
	rc, err := s.files.Open(ctx, filestore.KindDrawing, storageID, filestore.ExtensionFor(filestore.KindDrawing, rev.OriginalFilename))
	if err != nil {
		if errors.Is(err, filestore.ErrBlobNotFound) {
			return nil, notFoundCode(fmt.Errorf("revision content not found"), ErrCodeRevisionNotFound)
		}
		return nil, internalError(err)
	}

	item, err := s.store.GetItem(ctx, doc.ItemID)
	if err != nil {
		_ = rc.Close()
		return nil, storeFailure(err)
	}
	name := doc.Title
	if item != nil && item.PartNumber != "" {
		name = item.PartNumber
	}

	return &RevisionContent{
		Reader:    rc,
		SizeBytes: rev.SizeBytes,
		MimeType:  rev.MimeType,
		Filename:  fmt.Sprintf("%s_%s.pdf", name, rev.Label),
	}, nil
}

// SoftDelete hides a document, keeping rows and blobs. Repeating the
// call is a no-op success and preserves the first deletion's timestamp
// and actor.
func (s *DocumentService) SoftDelete(ctx context.Context, documentID, actorID string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil {
		return nil, notFoundCode(fmt.Errorf("document not found"), ErrCodeDocumentNotFound)
	}
	if doc.Deleted {
		return doc, nil
	}

	if err := s.store.SoftDeleteDocument(ctx, documentID, actorID, time.Now().UTC()); err != nil {
		return nil, storeFailure(err)
	}
	s.audit(ctx, actorID, "document.soft_delete", map[string]any{"document_id": documentID})

	doc, err = s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return doc, nil
}

// HardDelete removes every revision blob and then the document row.
// It reports false when the document does not exist. Blob deletion is
// idempotent, so a retry after a partial failure completes the job.
func (s *DocumentService) HardDelete(ctx context.Context, documentID, actorID string) (bool, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return false, storeFailure(err)
	}
	if doc == nil {
		return false, nil
	}

	revisions, err := s.store.ListRevisions(ctx, documentID)
	if err != nil {
		return false, storeFailure(err)
	}
	for _, rev := range revisions {
		storageID, err := uuid.Parse(rev.StorageID)
		if err != nil {
			continue
		}
		ext := filestore.ExtensionFor(filestore.KindDrawing, rev.OriginalFilename)
		if err := s.files.Delete(ctx, filestore.KindDrawing, storageID, ext); err != nil {
			return false, internalError(fmt.Errorf("delete revision blob: %w", err))
		}
	}

	if err := s.store.HardDeleteDocument(ctx, documentID); err != nil {
		return false, storeFailure(err)
	}
	s.audit(ctx, actorID, "document.hard_delete", map[string]any{"document_id": documentID})
	return true, nil
}

func (s *DocumentService) discardBlob(ctx context.Context, saved filestore.SaveResult) {
	if err := s.files.Delete(ctx, filestore.KindDrawing, saved.ID, saved.Extension); err != nil {
		s.logger.Error("remove orphan blob", "storage_id", saved.ID, "error", err)
	}
}

func (s *DocumentService) audit(ctx context.Context, actorID, action string, payload map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, actorID, action, payload)
}

// queueRevisionNotifications inserts one notification per recipient in
// the same transaction that commits the revision, so a rolled-back
// upload notifies nobody.
func queueRevisionNotifications(ctx context.Context, tx *store.Tx, doc *models.Document, rev *models.Revision, responsibleID string, adminIDs []string) error {
	message := fmt.Sprintf("revision %s uploaded for document %s", rev.Label, doc.Title)
	payload := map[string]any{
		"document_id":    doc.ID,
		"revision_id":    rev.ID,
		"revision_label": rev.Label,
	}
	for _, userID := range notificationRecipients(responsibleID, adminIDs) {
		err := tx.InsertNotification(ctx, &models.Notification{
			UserID:  userID,
			Message: message,
			Payload: payload,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func initialRevision(documentID, filename, authorID string, saved filestore.SaveResult) *models.Revision {
	return &models.Revision{
		ID:               uuid.NewString(),
		DocumentID:       documentID,
		Label:            models.InitialRevisionLabel,
		StorageID:        saved.ID.String(),
		OriginalFilename: filename,
		MimeType:         drawingMimeType,
		SizeBytes:        saved.SizeBytes,
		SHA256:           saved.SHA256,
		IsCurrent:        true,
		AuthorID:         authorID,
	}
}

func classifySaveError(err error) error {
	if errors.Is(err, filestore.ErrPayloadTooLarge) {
		return payloadTooLarge(err)
	}
	return internalError(err)
}

// keyedLocks hands out one mutex per key and frees it once the last
// holder releases.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *keyedLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*lockEntry)
	}
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
