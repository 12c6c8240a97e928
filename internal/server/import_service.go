package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docrev/internal/api"
	"docrev/internal/fileparse"
	"docrev/internal/filestore"
	"docrev/internal/models"
	"docrev/internal/store"
)

// batchErrorFilename tags result entries that describe the whole
// request instead of one file.
const batchErrorFilename = "batch"

// ImportService turns a set of uploaded drawings into item/document/
// revision triples under one transaction. Per-file problems (bad
// format, oversized payload, duplicate part number) skip that file and
// the batch goes on; anything else rolls the whole transaction back and
// removes every blob written during the attempt, so a failed batch
// leaves no rows and no orphan files.
type ImportService struct {
	store  *store.Store
	files  *filestore.Store
	logger *slog.Logger

	maxUploadBytes int64
}

// NewImportService constructs an ImportService.
func NewImportService(st *store.Store, files *filestore.Store, maxUploadBytes int64, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{store: st, files: files, logger: logger, maxUploadBytes: maxUploadBytes}
}

// ImportInput scopes one batch.
type ImportInput struct {
	// SectionID, when set, overrides any section code parsed from
	// filenames. It must belong to the target project.
	SectionID     string
	ResponsibleID string
	ActorID       string
}

// ImportFile is one uploaded file in a batch.
type ImportFile struct {
	Filename string
	Content  io.Reader
}

// fileOutcome is the per-file result: either a created triple or the
// reason the file was skipped.
type fileOutcome struct {
	created bool
	skip    string
}

// Run executes one batch import against a project. The returned result
// always has the same shape; a batch-level failure reports zero
// successes and a single entry under the reserved filename "batch".
// The error return is reserved for request-level problems (unknown
// project), not for batch execution failures.
func (s *ImportService) Run(ctx context.Context, projectID string, in ImportInput, files []ImportFile) (api.ImportResult, error) {
	result := api.ImportResult{Errors: []api.ImportError{}}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return result, storeFailure(err)
	}
	if project == nil {
		return result, notFoundCode(fmt.Errorf("project not found"), ErrCodeProjectNotFound)
	}
	if len(files) == 0 {
		return result, badRequestCode(fmt.Errorf("no files supplied"), ErrCodeMissingRequired)
	}

	// Admin recipients for the per-item fan-out, read before the batch
	// transaction claims the connection.
	adminIDs, err := s.store.ListActiveAdminIDs(ctx)
	if err != nil {
		return result, storeFailure(err)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return result, storeFailure(err)
	}
	defer func() { _ = tx.Rollback() }()

	// Section precheck: a mismatched explicit section fails the whole
	// batch before any file is touched.
	if in.SectionID != "" {
		ok, err := tx.SectionInProject(ctx, in.SectionID, projectID)
		if err != nil {
			return s.abort(ctx, tx, nil, err), nil
		}
		if !ok {
			return s.abort(ctx, tx, nil, fmt.Errorf("section does not belong to project")), nil
		}
	}

	var savedBlobs []filestore.SaveResult
	for _, file := range files {
		outcome, err := s.importOne(ctx, tx, projectID, in, file, adminIDs, &savedBlobs)
		if err != nil {
			return s.abort(ctx, tx, savedBlobs, err), nil
		}
		if outcome.created {
			result.CreatedCount++
			continue
		}
		result.Errors = append(result.Errors, api.ImportError{Filename: file.Filename, Error: outcome.skip})
	}

	if err := tx.Commit(); err != nil {
		return s.abort(ctx, tx, savedBlobs, err), nil
	}
	return result, nil
}

// importOne processes one file inside the batch transaction. A non-nil
// error is unrecoverable and aborts the batch; expected rejections come
// back as a skip outcome instead.
func (s *ImportService) importOne(ctx context.Context, tx *store.Tx, projectID string, in ImportInput, file ImportFile, adminIDs []string, savedBlobs *[]filestore.SaveResult) (fileOutcome, error) {
	if file.Content == nil {
		return fileOutcome{skip: "empty upload"}, nil
	}

	buffered := bufio.NewReader(file.Content)
	if err := filestore.CheckPDF(file.Filename, buffered); err != nil {
		return fileOutcome{skip: err.Error()}, nil
	}

	// Parsing never fails; missing fields fall back to the filename.
	parsed := fileparse.Parse(file.Filename)
	partNumber := parsed.PartNumber
	if partNumber == "" {
		partNumber = fileparse.FallbackPartNumber(file.Filename)
	}

	sectionID := in.SectionID
	if sectionID == "" && parsed.SectionCode != "" {
		section, err := tx.GetOrCreateSection(ctx, projectID, parsed.SectionCode)
		if err != nil {
			return fileOutcome{}, err
		}
		sectionID = section.ID
	}

	exists, err := tx.PartNumberExists(ctx, partNumber)
	if err != nil {
		return fileOutcome{}, err
	}
	if exists {
		return fileOutcome{skip: fmt.Sprintf("part number %s already exists", partNumber)}, nil
	}

	saved, err := s.files.Save(ctx, filestore.KindDrawing, file.Filename, buffered, s.maxUploadBytes)
	if err != nil {
		if errors.Is(err, filestore.ErrPayloadTooLarge) {
			return fileOutcome{skip: "payload exceeds maximum size"}, nil
		}
		return fileOutcome{}, err
	}
	*savedBlobs = append(*savedBlobs, saved)

	item := &models.Item{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		SectionID:     sectionID,
		PartNumber:    partNumber,
		Name:          parsed.Name,
		ResponsibleID: strings.TrimSpace(in.ResponsibleID),
	}
	if err := tx.CreateItem(ctx, item); err != nil {
		return fileOutcome{}, err
	}

	doc := &models.Document{
		ID:     uuid.NewString(),
		ItemID: item.ID,
		Title:  parsed.Name,
		Type:   "drawing",
	}
	if err := tx.CreateDocument(ctx, doc); err != nil {
		return fileOutcome{}, err
	}
	if err := tx.CreateRevision(ctx, initialRevision(doc.ID, file.Filename, in.ActorID, saved)); err != nil {
		return fileOutcome{}, err
	}

	// One notice per created item for the responsible user and the
	// admins, queued in the batch transaction.
	message := fmt.Sprintf("item %s (%s) imported", item.Name, item.PartNumber)
	payload := map[string]any{
		"item_id":     item.ID,
		"part_number": item.PartNumber,
		"name":        item.Name,
	}
	for _, userID := range notificationRecipients(item.ResponsibleID, adminIDs) {
		err := tx.InsertNotification(ctx, &models.Notification{
			UserID:  userID,
			Message: message,
			Payload: payload,
		})
		if err != nil {
			return fileOutcome{}, err
		}
	}

	return fileOutcome{created: true}, nil
}

// abort rolls the transaction back, removes every blob written in this
// attempt, and shapes the zero-success result. Blob cleanup is best
// effort; a cleanup failure is logged and never masks the cause.
func (s *ImportService) abort(ctx context.Context, tx *store.Tx, savedBlobs []filestore.SaveResult, cause error) api.ImportResult {
	_ = tx.Rollback()
	for _, blob := range savedBlobs {
		if err := s.files.Delete(ctx, filestore.KindDrawing, blob.ID, blob.Extension); err != nil {
			s.logger.Error("remove blob after batch failure", "storage_id", blob.ID, "error", err)
		}
	}
	s.logger.Error("batch import failed", "error", cause)
	return api.ImportResult{
		CreatedCount: 0,
		Errors:       []api.ImportError{{Filename: batchErrorFilename, Error: cause.Error()}},
	}
}
