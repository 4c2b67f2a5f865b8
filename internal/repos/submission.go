package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type SubmissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, submissions []*types.Submission) ([]*types.Submission, error)
	// CreateIfAbsent inserts the row unless the unique
	// (publication_id, user_id) slot is already taken, in which case the
	// insert is a silent no-op. Unlike a plain Create, a lost insert race
	// raises no error and so never aborts the enclosing transaction; the
	// caller re-reads to get the surviving row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Submission) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Submission, error)
	GetByPublicationIDs(ctx context.Context, tx *gorm.DB, publicationIDs []uuid.UUID) ([]*types.Submission, error)
	// GetByPublicationAndUser returns the user's submission for the
	// publication, or gorm.ErrRecordNotFound. (publication_id, user_id)
	// carries a unique index, so at most one row exists.
	GetByPublicationAndUser(ctx context.Context, tx *gorm.DB, publicationID, userID uuid.UUID) (*types.Submission, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Submission) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (r *submissionRepo) Create(ctx context.Context, tx *gorm.DB, submissions []*types.Submission) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(submissions) == 0 {
		return []*types.Submission{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Submission) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.PublicationID == uuid.Nil || row.UserID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "publication_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *submissionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Submission
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

func (r *submissionRepo) GetByPublicationIDs(ctx context.Context, tx *gorm.DB, publicationIDs []uuid.UUID) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Submission
	if len(publicationIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("publication_id IN ?", publicationIDs).
		Order("publication_id, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *submissionRepo) GetByPublicationAndUser(ctx context.Context, tx *gorm.DB, publicationID, userID uuid.UUID) (*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Submission
	if err := transaction.WithContext(ctx).
		Where("publication_id = ? AND user_id = ?", publicationID, userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *submissionRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Submission) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.ID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).Save(row).Error
}

func (r *submissionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Submission{}).Error; err != nil {
		return err
	}
	return nil
}
