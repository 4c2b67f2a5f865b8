package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

func TestAddOrUpdateFormation_RedeliveryIsIdempotent(t *testing.T) {
	repo := newFakeFormationCacheRepo()
	svc := NewFormationService(nil, testLogger(t), repo)
	ctx := context.Background()

	event := types.FormationCreatedEvent{
		FormationID: uuid.New(),
		Code:        "INFO-L3",
		Title:       "Licence Informatique",
		Credits:     60,
		CreatedAt:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}

	first, err := svc.AddOrUpdateFormation(ctx, dummyTx(), event)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}

	event.Title = "Licence Informatique (rev)"
	second, err := svc.AddOrUpdateFormation(ctx, dummyTx(), event)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected redelivery to update in place, not create a new row")
	}
	if second.Title != "Licence Informatique (rev)" {
		t.Fatalf("expected latest payload to win, got %q", second.Title)
	}

	all, err := svc.ListFormations(ctx, dummyTx())
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one cached formation, got %d (%v)", len(all), err)
	}
}

func TestAddOrUpdateFormation_MissingCodeRejected(t *testing.T) {
	svc := NewFormationService(nil, testLogger(t), newFakeFormationCacheRepo())

	_, err := svc.AddOrUpdateFormation(context.Background(), dummyTx(), types.FormationCreatedEvent{
		Title: "no code",
	})
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected missing code to be invalid, got %v", err)
	}
}
