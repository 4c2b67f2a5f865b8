package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/repos/testutil"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

func TestTemplateRepo_CreateAndLookup(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	repo := NewTemplateRepo(tx, log)
	ctx := context.Background()

	filiere := uuid.New()
	created, err := repo.Create(ctx, nil, []*types.Template{{
		Code:      "EVAL-L3-INFO",
		Version:   1,
		FiliereID: filiere,
		Role:      types.RoleStudent,
		Title:     "Évaluation des enseignements",
		Status:    types.TemplateStatusDraft,
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("expected one persisted template with generated id, got %+v", created)
	}

	got, err := repo.GetByCodeAndVersion(ctx, nil, "EVAL-L3-INFO", 1)
	if err != nil {
		t.Fatalf("get by code+version: %v", err)
	}
	if got.ID != created[0].ID || got.FiliereID != filiere {
		t.Fatalf("lookup returned wrong row: %+v", got)
	}

	byIDs, err := repo.GetByIDs(ctx, nil, []uuid.UUID{created[0].ID})
	if err != nil || len(byIDs) != 1 {
		t.Fatalf("get by ids: %v (%d rows)", err, len(byIDs))
	}
}

func TestTemplateRepo_CodeVersionUnique(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	repo := NewTemplateRepo(tx, log)
	ctx := context.Background()

	row := func() *types.Template {
		return &types.Template{
			Code:      "EVAL-M1-DROIT",
			Version:   2,
			FiliereID: uuid.New(),
			Role:      types.RoleStudent,
			Title:     "v2",
			Status:    types.TemplateStatusDraft,
		}
	}
	if _, err := repo.Create(ctx, nil, []*types.Template{row()}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := repo.Create(ctx, nil, []*types.Template{row()})
	if err == nil {
		t.Fatalf("expected duplicate (code, version) to fail")
	}
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict translation, got %v", err)
	}
}
