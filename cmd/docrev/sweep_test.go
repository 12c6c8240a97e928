package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"docrev/internal/filestore"
	"docrev/internal/models"
	"docrev/internal/store"
)

type sweepEnv struct {
	store      *store.Store
	files      *filestore.Store
	drawingDir string
	legacyDir  string
}

func newSweepEnv(t *testing.T) *sweepEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "sweep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	drawingDir := filepath.Join(dir, "drawings")
	legacyDir := filepath.Join(dir, "legacy")
	if err := os.MkdirAll(legacyDir, 0o755); err != nil {
		t.Fatalf("create legacy root: %v", err)
	}
	files, err := filestore.New(filestore.Options{
		DrawingRoot:       drawingDir,
		TechRoot:          filepath.Join(dir, "tech"),
		LegacyDrawingRoot: []string{legacyDir},
	})
	if err != nil {
		t.Fatalf("open filestore: %v", err)
	}
	return &sweepEnv{store: st, files: files, drawingDir: drawingDir, legacyDir: legacyDir}
}

// seedSweepDocument stores a blob and commits a document whose current
// revision points at it.
func seedSweepDocument(t *testing.T, env *sweepEnv, partNumber string) (*models.Document, filestore.SaveResult) {
	t.Helper()
	ctx := context.Background()

	project := &models.Project{Name: "sweep-" + partNumber}
	if err := env.store.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}

	saved, err := env.files.Save(ctx, filestore.KindDrawing, "drawing.pdf",
		bytes.NewReader([]byte("%PDF-1.4\ncontent")), 1<<20)
	if err != nil {
		t.Fatalf("save blob: %v", err)
	}

	item := &models.Item{ID: uuid.NewString(), ProjectID: project.ID, PartNumber: partNumber, Name: partNumber}
	doc := &models.Document{ID: uuid.NewString(), ItemID: item.ID, Title: "Drawing"}
	if err := env.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateItem(ctx, item); err != nil {
			return err
		}
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return err
		}
		return tx.CreateRevision(ctx, &models.Revision{
			ID:               uuid.NewString(),
			DocumentID:       doc.ID,
			Label:            models.InitialRevisionLabel,
			StorageID:        saved.ID.String(),
			OriginalFilename: "drawing.pdf",
			MimeType:         "application/pdf",
			SizeBytes:        saved.SizeBytes,
			SHA256:           saved.SHA256,
			IsCurrent:        true,
			AuthorID:         "seed",
		})
	}); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc, saved
}

func TestSweepHealthyRows(t *testing.T) {
	env := newSweepEnv(t)
	seedSweepDocument(t, env, "PN-SW-1")

	report, err := runSweep(context.Background(), env.store, env.files, false)
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if report.Checked != 1 || len(report.Missing) != 0 || len(report.LegacyHits) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSweepFindsLegacyBlob(t *testing.T) {
	env := newSweepEnv(t)
	_, saved := seedSweepDocument(t, env, "PN-SW-2")

	// Simulate a storage-root migration that left the blob behind.
	active := filepath.Join(env.drawingDir, saved.ID.String()+".pdf")
	legacy := filepath.Join(env.legacyDir, saved.ID.String()+".pdf")
	if err := os.Rename(active, legacy); err != nil {
		t.Fatalf("move blob to legacy root: %v", err)
	}

	report, err := runSweep(context.Background(), env.store, env.files, false)
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if len(report.LegacyHits) != 1 || len(report.Missing) != 0 {
		t.Fatalf("expected one legacy hit, got %+v", report)
	}
}

func TestSweepFixSoftDeletesMissingRows(t *testing.T) {
	env := newSweepEnv(t)
	doc, saved := seedSweepDocument(t, env, "PN-SW-3")

	if err := os.Remove(filepath.Join(env.drawingDir, saved.ID.String()+".pdf")); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	// Without --fix the row is only reported.
	report, err := runSweep(context.Background(), env.store, env.files, false)
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if len(report.Missing) != 1 || report.SoftDeleted != 0 {
		t.Fatalf("expected report-only pass, got %+v", report)
	}

	report, err = runSweep(context.Background(), env.store, env.files, true)
	if err != nil {
		t.Fatalf("run sweep fix: %v", err)
	}
	if report.SoftDeleted != 1 {
		t.Fatalf("expected one soft deletion, got %+v", report)
	}

	got, err := env.store.GetDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !got.Deleted || got.DeletedBy != sweepActor {
		t.Fatalf("expected document soft-deleted by sweep, got %+v", got)
	}
}
