package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type PublicationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, publications []*types.Publication) ([]*types.Publication, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Publication, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error)
	// GetOpenAt returns publications whose [start_at, end_at) window contains now.
	GetOpenAt(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Publication, error)
	// GetLatestOpenByCode returns the highest-version publication for the code
	// whose window contains now, or gorm.ErrRecordNotFound.
	GetLatestOpenByCode(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*types.Publication, error)
	GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.Publication, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type publicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPublicationRepo(db *gorm.DB, baseLog *logger.Logger) PublicationRepo {
	repoLog := baseLog.With("repo", "PublicationRepo")
	return &publicationRepo{db: db, log: repoLog}
}

func (r *publicationRepo) Create(ctx context.Context, tx *gorm.DB, publications []*types.Publication) ([]*types.Publication, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(publications) == 0 {
		return []*types.Publication{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&publications).Error; err != nil {
		return nil, err
	}
	return publications, nil
}

func (r *publicationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Publication, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Publication
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *publicationRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Publication
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *publicationRepo) GetOpenAt(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Publication, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Publication
	if err := transaction.WithContext(ctx).
		Where("start_at <= ? AND end_at > ?", now, now).
		Order("start_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *publicationRepo) GetLatestOpenByCode(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*types.Publication, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Publication
	if err := transaction.WithContext(ctx).
		Where("template_code = ? AND start_at <= ? AND end_at > ?", code, now, now).
		Order("version DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *publicationRepo) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.Publication, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Publication
	if len(codes) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("template_code IN ?", codes).
		Order("template_code, version DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *publicationRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Publication{}).Error; err != nil {
		return err
	}
	return nil
}
