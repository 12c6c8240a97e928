package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"docrev/internal/models"
)

func TestGetOrCreateSectionReusesExisting(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	project := &models.Project{Name: "sections"}
	if err := st.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}

	var first, second *models.Section
	if err := st.InTx(ctx, func(tx *Tx) error {
		var err error
		if first, err = tx.GetOrCreateSection(ctx, project.ID, "БНС.КМД"); err != nil {
			return err
		}
		second, err = tx.GetOrCreateSection(ctx, project.ID, "БНС.КМД")
		return err
	}); err != nil {
		t.Fatalf("get or create: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected one section row, got %s and %s", first.ID, second.ID)
	}
	if first.Code != "БНС.КМД" || first.ProjectID != project.ID {
		t.Fatalf("unexpected section: %+v", first)
	}
}

func TestGetOrCreateSectionScopedByProject(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	p1 := &models.Project{Name: "p1"}
	p2 := &models.Project{Name: "p2"}
	if err := st.CreateProject(ctx, p1); err != nil {
		t.Fatalf("create p1: %v", err)
	}
	if err := st.CreateProject(ctx, p2); err != nil {
		t.Fatalf("create p2: %v", err)
	}

	var s1, s2 *models.Section
	if err := st.InTx(ctx, func(tx *Tx) error {
		var err error
		if s1, err = tx.GetOrCreateSection(ctx, p1.ID, "TX"); err != nil {
			return err
		}
		s2, err = tx.GetOrCreateSection(ctx, p2.ID, "TX")
		return err
	}); err != nil {
		t.Fatalf("get or create: %v", err)
	}

	if s1.ID == s2.ID {
		t.Fatal("same code in different projects must be distinct sections")
	}
}

func TestSectionInProject(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	p1 := &models.Project{Name: "scope-1"}
	p2 := &models.Project{Name: "scope-2"}
	if err := st.CreateProject(ctx, p1); err != nil {
		t.Fatalf("create p1: %v", err)
	}
	if err := st.CreateProject(ctx, p2); err != nil {
		t.Fatalf("create p2: %v", err)
	}

	section := &models.Section{ProjectID: p1.ID, Code: "KMD"}
	if err := st.CreateSection(ctx, section); err != nil {
		t.Fatalf("create section: %v", err)
	}

	if err := st.InTx(ctx, func(tx *Tx) error {
		ok, err := tx.SectionInProject(ctx, section.ID, p1.ID)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected section to belong to p1")
		}

		ok, err = tx.SectionInProject(ctx, section.ID, p2.ID)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("section must not belong to p2")
		}
		return nil
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestPartNumberExistsSeesStagedRows(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	project := &models.Project{Name: "staged"}
	if err := st.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}

	if err := st.InTx(ctx, func(tx *Tx) error {
		ok, err := tx.PartNumberExists(ctx, "PN-STAGED")
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("part number should not exist yet")
		}

		if err := tx.CreateItem(ctx, &models.Item{
			ID:         uuid.NewString(),
			ProjectID:  project.ID,
			PartNumber: "PN-STAGED",
			Name:       "Staged",
		}); err != nil {
			return err
		}

		// An uncommitted row from this same transaction must be visible
		// to the duplicate check for later files in a batch.
		ok, err = tx.PartNumberExists(ctx, "PN-STAGED")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("staged part number must be visible inside the transaction")
		}
		return nil
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestDuplicatePartNumberConstraint(t *testing.T) {
	st := testStore(t)
	seedItem(t, st, "PN-DUP")
	ctx := context.Background()

	project, err := st.GetProjectByName(ctx, "proj-PN-DUP")
	if err != nil || project == nil {
		t.Fatalf("get project: %v %v", project, err)
	}

	err = st.InTx(ctx, func(tx *Tx) error {
		return tx.CreateItem(ctx, &models.Item{
			ID:         uuid.NewString(),
			ProjectID:  project.ID,
			PartNumber: "PN-DUP",
			Name:       "Duplicate",
		})
	})
	if err == nil {
		t.Fatal("expected unique constraint on part_number")
	}
}
