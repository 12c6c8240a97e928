// Package filestore persists document payloads on the local filesystem.
// Blobs are addressed by a generated UUID, never by their logical name;
// integrity is tracked via a SHA-256 digest computed while streaming.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const saveChunkSize = 32 * 1024

var (
	// ErrPayloadTooLarge means the stream exceeded the configured byte
	// limit. The partial blob is removed before this is returned.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

	// ErrBlobNotFound means no blob exists for the given identifier.
	ErrBlobNotFound = errors.New("blob not found")
)

// Kind selects the storage root and extension policy for a blob.
type Kind string

const (
	// KindDrawing stores PDF drawings under the primary root with a
	// fixed "pdf" extension.
	KindDrawing Kind = "drawing"

	// KindTech stores spreadsheet documents under the tech root with an
	// extension derived from the uploaded filename.
	KindTech Kind = "tech"
)

// Options configures a Store. Legacy roots are older storage locations
// kept around after a path migration; they are read-only and only
// consulted by CandidatePaths.
type Options struct {
	DrawingRoot       string
	TechRoot          string
	LegacyDrawingRoot []string
	LegacyTechRoot    []string
}

// Store is a UUID-addressed blob store over one or two filesystem roots.
// Writes land in a temp directory first and are renamed into place, so a
// crash mid-write never leaves a half-written blob at a final path.
type Store struct {
	drawingRoot  string
	techRoot     string
	legacyByKind map[Kind][]string
}

// SaveResult describes one persisted blob.
type SaveResult struct {
	ID        uuid.UUID
	Extension string
	SizeBytes int64
	SHA256    string
}

// New creates the storage roots (and their tmp directories) if needed.
func New(opts Options) (*Store, error) {
	drawingRoot := strings.TrimSpace(opts.DrawingRoot)
	if drawingRoot == "" {
		return nil, fmt.Errorf("drawing storage root is required")
	}
	techRoot := strings.TrimSpace(opts.TechRoot)
	if techRoot == "" {
		techRoot = drawingRoot
	}

	s := &Store{
		legacyByKind: map[Kind][]string{
			KindDrawing: cleanRoots(opts.LegacyDrawingRoot),
			KindTech:    cleanRoots(opts.LegacyTechRoot),
		},
	}

	var err error
	if s.drawingRoot, err = ensureRoot(drawingRoot); err != nil {
		return nil, err
	}
	if s.techRoot, err = ensureRoot(techRoot); err != nil {
		return nil, err
	}
	return s, nil
}

// Save streams r into a fresh blob, enforcing maxBytes during the copy.
// The input is never buffered whole: chunks pass through the digest and
// onto disk as they arrive. Exceeding the limit or any write failure
// removes the partial file before the error is returned.
func (s *Store) Save(ctx context.Context, kind Kind, filename string, r io.Reader, maxBytes int64) (SaveResult, error) {
	var zero SaveResult
	if s == nil {
		return zero, fmt.Errorf("file store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return zero, fmt.Errorf("max size must be positive")
	}

	id := uuid.New()
	ext := ExtensionFor(kind, filename)
	root := s.root(kind)

	tmp, err := os.CreateTemp(filepath.Join(root, "tmp"), "save-*")
	if err != nil {
		return zero, fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	buf := make([]byte, saveChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			cleanup()
			return zero, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > maxBytes {
				cleanup()
				return zero, ErrPayloadTooLarge
			}
			h.Write(buf[:n])
			if _, err := tmp.Write(buf[:n]); err != nil {
				cleanup()
				return zero, fmt.Errorf("write blob: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cleanup()
			return zero, fmt.Errorf("read upload stream: %w", readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return zero, fmt.Errorf("close blob: %w", err)
	}

	dst := blobPath(root, id, ext)
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return zero, fmt.Errorf("finalize blob: %w", err)
	}

	return SaveResult{
		ID:        id,
		Extension: ext,
		SizeBytes: written,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Open returns a reader over a stored blob.
func (s *Store) Open(ctx context.Context, kind Kind, id uuid.UUID, ext string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("file store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(blobPath(s.root(kind), id, ext))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a blob. Deleting an absent blob is not an error, so
// interrupted hard-deletes can be retried safely.
func (s *Store) Delete(ctx context.Context, kind Kind, id uuid.UUID, ext string) error {
	if s == nil {
		return fmt.Errorf("file store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(blobPath(s.root(kind), id, ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CandidatePaths lists every path the blob may live at, active root
// first, then legacy roots in configuration order. Consistency sweeps
// use this to find blobs stranded by a storage-root migration.
func (s *Store) CandidatePaths(kind Kind, id uuid.UUID, ext string) []string {
	paths := []string{blobPath(s.root(kind), id, ext)}
	for _, root := range s.legacyByKind[kind] {
		paths = append(paths, blobPath(root, id, ext))
	}
	return paths
}

func (s *Store) root(kind Kind) string {
	if kind == KindTech {
		return s.techRoot
	}
	return s.drawingRoot
}

func blobPath(root string, id uuid.UUID, ext string) string {
	return filepath.Join(root, fmt.Sprintf("%s.%s", id, ext))
}

func ensureRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func cleanRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		out = append(out, root)
	}
	return out
}
