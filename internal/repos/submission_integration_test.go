package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/repos/testutil"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

func seedPublication(t *testing.T, repo PublicationRepo) *types.Publication {
	t.Helper()
	now := time.Now().UTC()
	created, err := repo.Create(context.Background(), nil, []*types.Publication{{
		TemplateCode: "EVAL-SUB-" + uuid.NewString()[:8],
		Version:      1,
		FiliereID:    uuid.New(),
		StartAt:      now.Add(-time.Hour),
		EndAt:        now.Add(time.Hour),
	}})
	if err != nil {
		t.Fatalf("seed publication: %v", err)
	}
	return created[0]
}

func TestSubmissionRepo_OnePerUserPerPublication(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	pubRepo := NewPublicationRepo(tx, log)
	repo := NewSubmissionRepo(tx, log)
	ctx := context.Background()

	pub := seedPublication(t, pubRepo)
	user := uuid.New()

	created, err := repo.Create(ctx, nil, []*types.Submission{{
		PublicationID: pub.ID,
		UserID:        user,
		Status:        types.SubmissionStatusPending,
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByPublicationAndUser(ctx, nil, pub.ID, user)
	if err != nil {
		t.Fatalf("get by publication+user: %v", err)
	}
	if got.ID != created[0].ID {
		t.Fatalf("lookup returned wrong submission")
	}

	_, err = repo.Create(ctx, nil, []*types.Submission{{
		PublicationID: pub.ID,
		UserID:        user,
		Status:        types.SubmissionStatusPending,
	}})
	if err == nil || !apperr.IsConflict(err) {
		t.Fatalf("expected second submission for same user to conflict, got %v", err)
	}
}

func TestSubmissionRepo_CreateIfAbsentKeepsTransactionUsable(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	pubRepo := NewPublicationRepo(tx, log)
	repo := NewSubmissionRepo(tx, log)
	ctx := context.Background()

	pub := seedPublication(t, pubRepo)
	user := uuid.New()

	winners, err := repo.Create(ctx, nil, []*types.Submission{{
		PublicationID: pub.ID,
		UserID:        user,
		Status:        types.SubmissionStatusPending,
	}})
	if err != nil {
		t.Fatalf("seed winner: %v", err)
	}
	winner := winners[0]

	// The slot is taken, so this insert must degrade to a no-op without
	// raising an error and poisoning the transaction.
	if err := repo.CreateIfAbsent(ctx, nil, &types.Submission{
		ID:            uuid.New(),
		PublicationID: pub.ID,
		UserID:        user,
		Status:        types.SubmissionStatusPending,
	}); err != nil {
		t.Fatalf("lost insert race must not error: %v", err)
	}

	// Follow-up statements on the same transaction still work.
	got, err := repo.GetByPublicationAndUser(ctx, nil, pub.ID, user)
	if err != nil {
		t.Fatalf("re-read after lost race: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected the winner's row to survive, got %s", got.ID)
	}
	rows, err := repo.GetByPublicationIDs(ctx, nil, []uuid.UUID{pub.ID})
	if err != nil {
		t.Fatalf("list submissions after lost race: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one submission row, got %d", len(rows))
	}
}

func TestSubmissionAnswerRepo_UpsertOverwritesInPlace(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	pubRepo := NewPublicationRepo(tx, log)
	subRepo := NewSubmissionRepo(tx, log)
	repo := NewSubmissionAnswerRepo(tx, log)
	ctx := context.Background()

	pub := seedPublication(t, pubRepo)
	subs, err := subRepo.Create(ctx, nil, []*types.Submission{{
		PublicationID: pub.ID,
		UserID:        uuid.New(),
		Status:        types.SubmissionStatusPending,
	}})
	if err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	submission := subs[0]
	question := uuid.New()

	first := 3.0
	if err := repo.Upsert(ctx, nil, &types.SubmissionAnswer{
		SubmissionID: submission.ID,
		QuestionID:   question,
		ValueNumber:  &first,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := 5.0
	if err := repo.Upsert(ctx, nil, &types.SubmissionAnswer{
		SubmissionID: submission.ID,
		QuestionID:   question,
		ValueNumber:  &second,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := repo.GetBySubmissionIDs(ctx, nil, []uuid.UUID{submission.ID})
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single answer row after re-answer, got %d", len(rows))
	}
	if rows[0].ValueNumber == nil || *rows[0].ValueNumber != second {
		t.Fatalf("expected second value to win, got %+v", rows[0])
	}
}
