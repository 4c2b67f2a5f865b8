package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/repos/testutil"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

func TestSectionRepo_DisplayOrderUniquePerTemplate(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	templateRepo := NewTemplateRepo(tx, log)
	repo := NewSectionRepo(tx, log)
	ctx := context.Background()

	templates, err := templateRepo.Create(ctx, nil, []*types.Template{{
		Code:      "EVAL-SEC",
		Version:   1,
		FiliereID: uuid.New(),
		Role:      types.RoleStudent,
		Title:     "t",
		Status:    types.TemplateStatusDraft,
	}})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	template := templates[0]

	if _, err := repo.Create(ctx, nil, []*types.Section{{
		TemplateID:   template.ID,
		Title:        "Intro",
		DisplayOrder: 0,
	}}); err != nil {
		t.Fatalf("first section: %v", err)
	}

	_, err = repo.Create(ctx, nil, []*types.Section{{
		TemplateID:   template.ID,
		Title:        "Also order zero",
		DisplayOrder: 0,
	}})
	if err == nil || !apperr.IsConflict(err) {
		t.Fatalf("expected duplicate display order to conflict, got %v", err)
	}
}
