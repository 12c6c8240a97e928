package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docrev/internal/config"
	"docrev/internal/filestore"
	"docrev/internal/store"
)

// sweepActor attributes soft deletions performed by the sweep.
const sweepActor = "sweep"

type sweepReport struct {
	Checked     int      `json:"checked"`
	LegacyHits  []string `json:"legacy_hits,omitempty"`
	Missing     []string `json:"missing,omitempty"`
	SoftDeleted int      `json:"soft_deleted"`
}

func newSweepCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Check stored rows against blobs on disk",
		Long: "Sweep walks every visible document and tech document and verifies that " +
			"its payload exists under the active storage root or one of the configured " +
			"legacy roots. Rows whose payload is missing everywhere are reported, and " +
			"soft-deleted when --fix is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := openFilestore(cfg)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				report, err := runSweep(cmd.Context(), st, files, fix)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(report)
				}

				if err := writePlain("checked %d row(s)\n", report.Checked); err != nil {
					return err
				}
				for _, hit := range report.LegacyHits {
					if err := writePlain("legacy: %s\n", hit); err != nil {
						return err
					}
				}
				for _, miss := range report.Missing {
					if err := writePlain("missing: %s\n", miss); err != nil {
						return err
					}
				}
				if fix {
					return writePlain("soft-deleted %d row(s)\n", report.SoftDeleted)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "soft-delete rows whose payload is missing in every root")
	return cmd
}

func runSweep(ctx context.Context, st *store.Store, files *filestore.Store, fix bool) (sweepReport, error) {
	report := sweepReport{}
	now := time.Now().UTC()

	documents, err := st.ListDocuments(ctx, "", false)
	if err != nil {
		return report, err
	}
	for _, doc := range documents {
		current, err := st.GetCurrentRevision(ctx, doc.ID)
		if err != nil {
			return report, err
		}
		if current == nil {
			continue
		}
		storageID, err := uuid.Parse(current.StorageID)
		if err != nil {
			report.Missing = append(report.Missing, fmt.Sprintf("document %s: invalid storage id", doc.ID))
			continue
		}
		report.Checked++

		ext := filestore.ExtensionFor(filestore.KindDrawing, current.OriginalFilename)
		switch locateBlob(files.CandidatePaths(filestore.KindDrawing, storageID, ext)) {
		case blobActive:
		case blobLegacy:
			report.LegacyHits = append(report.LegacyHits, fmt.Sprintf("document %s (revision %s)", doc.ID, current.Label))
		case blobMissing:
			report.Missing = append(report.Missing, fmt.Sprintf("document %s (revision %s)", doc.ID, current.Label))
			if fix {
				if err := st.SoftDeleteDocument(ctx, doc.ID, sweepActor, now); err != nil {
					return report, err
				}
				report.SoftDeleted++
			}
		}
	}

	techDocs, err := st.ListActiveTechDocuments(ctx)
	if err != nil {
		return report, err
	}
	for _, doc := range techDocs {
		storageID, err := uuid.Parse(doc.StorageID)
		if err != nil {
			report.Missing = append(report.Missing, fmt.Sprintf("tech document %s: invalid storage id", doc.ID))
			continue
		}
		report.Checked++

		switch locateBlob(files.CandidatePaths(filestore.KindTech, storageID, doc.Extension)) {
		case blobActive:
		case blobLegacy:
			report.LegacyHits = append(report.LegacyHits, fmt.Sprintf("tech document %s (v%d)", doc.ID, doc.Version))
		case blobMissing:
			report.Missing = append(report.Missing, fmt.Sprintf("tech document %s (v%d)", doc.ID, doc.Version))
			if fix {
				if err := st.SoftDeleteTechDocument(ctx, doc.ID, sweepActor, now); err != nil {
					return report, err
				}
				report.SoftDeleted++
			}
		}
	}

	return report, nil
}

type blobLocation int

const (
	blobActive blobLocation = iota
	blobLegacy
	blobMissing
)

// locateBlob stats candidate paths in order; the first entry is the
// active root, the rest are legacy roots.
func locateBlob(paths []string) blobLocation {
	for i, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if i == 0 {
			return blobActive
		}
		return blobLegacy
	}
	return blobMissing
}
