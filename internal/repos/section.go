package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type SectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sections []*types.Section) ([]*types.Section, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Section, error)
	GetByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.Section, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Section) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) error
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	repoLog := baseLog.With("repo", "SectionRepo")
	return &sectionRepo{db: db, log: repoLog}
}

func (r *sectionRepo) Create(ctx context.Context, tx *gorm.DB, sections []*types.Section) ([]*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(sections) == 0 {
		return []*types.Section{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *sectionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Section
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

func (r *sectionRepo) GetByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Section
	if len(templateIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("template_id IN ?", templateIDs).
		Order("template_id, display_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sectionRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Section) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.ID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).Save(row).Error
}

func (r *sectionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Section{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *sectionRepo) FullDeleteByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(templateIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("template_id IN ?", templateIDs).
		Delete(&types.Section{}).Error; err != nil {
		return err
	}
	return nil
}
