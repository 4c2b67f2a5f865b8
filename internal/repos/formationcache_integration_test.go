package repos

import (
	"context"
	"testing"

	"github.com/campuspulse/campuspulse-backend/internal/repos/testutil"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

func TestFormationCacheRepo_UpsertByCodeIsIdempotent(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	repo := NewFormationCacheRepo(tx, log)
	ctx := context.Background()

	if err := repo.UpsertByCode(ctx, nil, &types.FormationCache{
		Code:    "INFO-L3",
		Title:   "Licence Informatique",
		Credits: 60,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertByCode(ctx, nil, &types.FormationCache{
		Code:        "INFO-L3",
		Title:       "Licence Informatique (rev)",
		Description: "maquette 2026",
		Credits:     60,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := repo.GetByCodes(ctx, nil, []string{"INFO-L3"})
	if err != nil {
		t.Fatalf("get by codes: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected redelivery to leave one row, got %d", len(rows))
	}
	if rows[0].Title != "Licence Informatique (rev)" || rows[0].Description != "maquette 2026" {
		t.Fatalf("expected latest payload to win, got %+v", rows[0])
	}
}
