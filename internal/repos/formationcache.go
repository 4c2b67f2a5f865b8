package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type FormationCacheRepo interface {
	// UpsertByCode inserts the row or, when the unique code already exists,
	// overwrites title/description/credits/updated_at in place. Idempotent
	// under event redelivery.
	UpsertByCode(ctx context.Context, tx *gorm.DB, row *types.FormationCache) error
	GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.FormationCache, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.FormationCache, error)
}

type formationCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFormationCacheRepo(db *gorm.DB, baseLog *logger.Logger) FormationCacheRepo {
	repoLog := baseLog.With("repo", "FormationCacheRepo")
	return &formationCacheRepo{db: db, log: repoLog}
}

func (r *formationCacheRepo) UpsertByCode(ctx context.Context, tx *gorm.DB, row *types.FormationCache) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.Code == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "credits", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *formationCacheRepo) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.FormationCache, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FormationCache
	if len(codes) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("code IN ?", codes).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *formationCacheRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.FormationCache, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FormationCache
	if err := transaction.WithContext(ctx).
		Order("code ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
