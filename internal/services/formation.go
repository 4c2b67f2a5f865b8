package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/repos"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

// FormationService keeps the local read replica of catalog formations in
// sync. The same upsert backs the broker consumer and the HTTP relay, and it
// is idempotent under at-least-once redelivery: replaying an event leaves
// exactly one row per code with the latest field values.
type FormationService interface {
	AddOrUpdateFormation(ctx context.Context, tx *gorm.DB, event types.FormationCreatedEvent) (*types.FormationCache, error)
	ListFormations(ctx context.Context, tx *gorm.DB) ([]*types.FormationCache, error)
}

type formationService struct {
	db            *gorm.DB
	log           *logger.Logger
	formationRepo repos.FormationCacheRepo
}

func NewFormationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	formationRepo repos.FormationCacheRepo,
) FormationService {
	serviceLog := baseLog.With("service", "FormationService")
	return &formationService{
		db:            db,
		log:           serviceLog,
		formationRepo: formationRepo,
	}
}

func (fs *formationService) AddOrUpdateFormation(ctx context.Context, tx *gorm.DB, event types.FormationCreatedEvent) (*types.FormationCache, error) {
	if event.Code == "" {
		return nil, apperr.InvalidState("formation event missing code")
	}

	now := time.Now().UTC()
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := event.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	row := &types.FormationCache{
		Code:        event.Code,
		Title:       event.Title,
		Description: event.Description,
		Credits:     event.Credits,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if err := fs.formationRepo.UpsertByCode(ctx, tx, row); err != nil {
		fs.log.Error("AddOrUpdateFormation failed", "error", err, "code", event.Code)
		return nil, apperr.Translate(fmt.Errorf("upsert formation cache: %w", err))
	}

	rows, err := fs.formationRepo.GetByCodes(ctx, tx, []string{event.Code})
	if err != nil {
		return nil, fmt.Errorf("load formation cache: %w", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apperr.NotFound("formation cache row not found after upsert")
	}
	return rows[0], nil
}

func (fs *formationService) ListFormations(ctx context.Context, tx *gorm.DB) ([]*types.FormationCache, error) {
	rows, err := fs.formationRepo.GetAll(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list formation cache: %w", err)
	}
	return rows, nil
}
