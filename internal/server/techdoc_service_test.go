package server

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// xlsxBytes builds a one-sheet workbook from cell values keyed by
// reference ("A1").
func xlsxBytes(t *testing.T, sheet string, cells map[string]any) []byte {
	t.Helper()
	workbook := excelize.NewFile()
	defer workbook.Close()

	if sheet != "Sheet1" {
		if err := workbook.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}
	for ref, value := range cells {
		if err := workbook.SetCellValue(sheet, ref, value); err != nil {
			t.Fatalf("set cell %s: %v", ref, err)
		}
	}
	buf, err := workbook.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestTechDocumentUploadAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := seedProject(t, env, "tech-proj-1")
	section := seedSection(t, env, project.ID, "AB.CD")

	first := []byte("spreadsheet v1")
	doc, err := env.srv.techdocs.Upload(ctx, section.ID, "list.xlsx", "uploader", bytes.NewReader(first))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Version != 1 || !doc.IsCurrent {
		t.Fatalf("expected current version 1, got %+v", doc)
	}
	if doc.Extension != "xlsx" {
		t.Fatalf("expected xlsx extension, got %q", doc.Extension)
	}

	second := []byte("spreadsheet v2 with more rows")
	updated, err := env.srv.techdocs.Update(ctx, doc.ID, "list-updated.xlsx", "editor", bytes.NewReader(second))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}
	if updated.Filename != "list-updated.xlsx" {
		t.Fatalf("expected filename replaced, got %q", updated.Filename)
	}

	versions, err := env.srv.techdocs.Versions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Fatalf("expected one archived version 1, got %+v", versions)
	}
	if versions[0].StorageID != doc.StorageID {
		t.Fatal("archived version must keep the original blob reference")
	}

	// Both payloads stay on disk: the head and the archived version.
	if countBlobs(t, env.techDir) != 2 {
		t.Fatalf("expected 2 blobs, got %d", countBlobs(t, env.techDir))
	}

	content, err := env.srv.techdocs.Content(ctx, doc.ID)
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	defer content.Reader.Close()
	data, err := io.ReadAll(content.Reader)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if !bytes.Equal(data, second) {
		t.Fatal("download must serve the latest payload")
	}
	if content.Filename != "list-updated.xlsx" {
		t.Fatalf("unexpected download name %q", content.Filename)
	}
}

func TestTechDocumentUploadUnknownSection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.srv.techdocs.Upload(context.Background(), uuid.NewString(), "list.xlsx", "uploader",
		bytes.NewReader([]byte("data")))
	if err == nil || httpStatusFromError(err) != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestTechDocumentSoftDeleteIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := seedProject(t, env, "tech-proj-2")
	section := seedSection(t, env, project.ID, "AB.CD")

	doc, err := env.srv.techdocs.Upload(ctx, section.ID, "list.xlsx", "uploader", bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	first, err := env.srv.techdocs.SoftDelete(ctx, doc.ID, "actor-1")
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !first.Deleted || first.DeletedBy != "actor-1" {
		t.Fatalf("expected deleted by actor-1, got %+v", first)
	}

	second, err := env.srv.techdocs.SoftDelete(ctx, doc.ID, "actor-2")
	if err != nil {
		t.Fatalf("repeat soft delete: %v", err)
	}
	if second.DeletedBy != "actor-1" {
		t.Fatalf("repeat delete must keep the first actor, got %q", second.DeletedBy)
	}

	// Deleted documents disappear from reads and listings.
	if _, err := env.srv.techdocs.Get(ctx, doc.ID); err == nil || httpStatusFromError(err) != 404 {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
	listed, err := env.srv.techdocs.List(ctx, section.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty listing, got %d", len(listed))
	}
	if countBlobs(t, env.techDir) != 1 {
		t.Fatal("soft delete must keep the blob")
	}
}

func TestTechDocumentHardDeleteRemovesAllBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := seedProject(t, env, "tech-proj-3")
	section := seedSection(t, env, project.ID, "AB.CD")

	doc, err := env.srv.techdocs.Upload(ctx, section.ID, "list.xlsx", "uploader", bytes.NewReader([]byte("v1")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := env.srv.techdocs.Update(ctx, doc.ID, "list.xlsx", "editor", bytes.NewReader([]byte("v2"))); err != nil {
		t.Fatalf("update: %v", err)
	}
	if countBlobs(t, env.techDir) != 2 {
		t.Fatalf("expected 2 blobs before delete, got %d", countBlobs(t, env.techDir))
	}

	deleted, err := env.srv.techdocs.HardDelete(ctx, doc.ID, "actor-1")
	if err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected hard delete to report success")
	}
	if countBlobs(t, env.techDir) != 0 {
		t.Fatalf("expected all blobs removed, got %d", countBlobs(t, env.techDir))
	}

	got, err := env.store.GetTechDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get tech document: %v", err)
	}
	if got != nil {
		t.Fatal("expected row gone")
	}

	deleted, err = env.srv.techdocs.HardDelete(ctx, doc.ID, "actor-1")
	if err != nil {
		t.Fatalf("repeat hard delete: %v", err)
	}
	if deleted {
		t.Fatal("expected repeat hard delete to report absence")
	}
}

func TestTechDocumentPreview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := seedProject(t, env, "tech-proj-5")
	section := seedSection(t, env, project.ID, "AB.CD")

	payload := xlsxBytes(t, "Parts", map[string]any{
		"A1": "Part", "B1": "Qty",
		"A2": "PN-1", "B2": 4,
	})
	doc, err := env.srv.techdocs.Upload(ctx, section.ID, "parts.xlsx", "uploader", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	preview, err := env.srv.techdocs.Preview(ctx, doc.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(preview.Sheets) != 1 || preview.Sheets[0].Name != "Parts" {
		t.Fatalf("unexpected sheets: %+v", preview.Sheets)
	}
	sheet := preview.Sheets[0]
	if sheet.TotalRows != 2 || len(sheet.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", sheet)
	}
	if sheet.Rows[0][0] != "Part" || sheet.Rows[1][1] != "4" {
		t.Fatalf("unexpected cell values: %+v", sheet.Rows)
	}
	if preview.Sheet == nil || preview.Sheet.Name != "Parts" {
		t.Fatalf("expected first sheet repeated, got %+v", preview.Sheet)
	}
}

func TestTechDocumentPreviewRejectsNonSpreadsheet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := seedProject(t, env, "tech-proj-6")
	section := seedSection(t, env, project.ID, "AB.CD")

	doc, err := env.srv.techdocs.Upload(ctx, section.ID, "broken.xlsx", "uploader",
		bytes.NewReader([]byte("not a workbook")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, err = env.srv.techdocs.Preview(ctx, doc.ID)
	if err == nil {
		t.Fatal("expected preview failure")
	}
	if httpStatusFromError(err) != 400 || errorNumericCode(400, err) != ErrCodeInvalidFileFormat {
		t.Fatalf("expected 400/%d, got %d/%d", ErrCodeInvalidFileFormat,
			httpStatusFromError(err), errorNumericCode(400, err))
	}
}

func TestTechDocumentUpdateOnDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := seedProject(t, env, "tech-proj-4")
	section := seedSection(t, env, project.ID, "AB.CD")

	doc, err := env.srv.techdocs.Upload(ctx, section.ID, "list.xlsx", "uploader", bytes.NewReader([]byte("v1")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := env.srv.techdocs.SoftDelete(ctx, doc.ID, "actor-1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err = env.srv.techdocs.Update(ctx, doc.ID, "list.xlsx", "editor", bytes.NewReader([]byte("v2")))
	if err == nil || httpStatusFromError(err) != 404 {
		t.Fatalf("expected 404 on deleted document, got %v", err)
	}
	if countBlobs(t, env.techDir) != 1 {
		t.Fatal("rejected update must not leave a new blob")
	}
}
