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

type SubmissionAnswerRepo interface {
	GetBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.SubmissionAnswer, error)
	GetBySubmissionAndQuestion(ctx context.Context, tx *gorm.DB, submissionID, questionID uuid.UUID) (*types.SubmissionAnswer, error)
	// Upsert writes the answer for (submission_id, question_id); on conflict
	// with the unique index both value columns are overwritten. This is the
	// authoritative at-most-one-answer-per-question guarantee under
	// concurrent submission attempts.
	Upsert(ctx context.Context, tx *gorm.DB, row *types.SubmissionAnswer) error
	FullDeleteBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) error
}

type submissionAnswerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionAnswerRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionAnswerRepo {
	repoLog := baseLog.With("repo", "SubmissionAnswerRepo")
	return &submissionAnswerRepo{db: db, log: repoLog}
}

func (r *submissionAnswerRepo) GetBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.SubmissionAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SubmissionAnswer
	if len(submissionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Order("submission_id, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *submissionAnswerRepo) GetBySubmissionAndQuestion(ctx context.Context, tx *gorm.DB, submissionID, questionID uuid.UUID) (*types.SubmissionAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SubmissionAnswer
	if err := transaction.WithContext(ctx).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *submissionAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SubmissionAnswer) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.SubmissionID == uuid.Nil || row.QuestionID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()

	// On conflict, overwrite both value columns and updated_at.
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value_number", "value_text", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *submissionAnswerRepo) FullDeleteBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(submissionIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Delete(&types.SubmissionAnswer{}).Error; err != nil {
		return err
	}
	return nil
}
