package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type TemplateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, templates []*types.Template) ([]*types.Template, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Template, error)
	GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.Template, error)
	GetByCodeAndVersion(ctx context.Context, tx *gorm.DB, code string, version int) (*types.Template, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Template, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Template) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type templateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	repoLog := baseLog.With("repo", "TemplateRepo")
	return &templateRepo{db: db, log: repoLog}
}

func (r *templateRepo) Create(ctx context.Context, tx *gorm.DB, templates []*types.Template) ([]*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(templates) == 0 {
		return []*types.Template{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Template
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

func (r *templateRepo) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Template
	if len(codes) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("code IN ?", codes).
		Order("code, version DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *templateRepo) GetByCodeAndVersion(ctx context.Context, tx *gorm.DB, code string, version int) (*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Template
	if err := transaction.WithContext(ctx).
		Where("code = ? AND version = ?", code, version).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *templateRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Template
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *templateRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Template) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.ID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).Save(row).Error
}

func (r *templateRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Template{}).Error; err != nil {
		return err
	}
	return nil
}
