package types

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is stored as a small integer column.
type SubmissionStatus int

const (
	SubmissionStatusPending   SubmissionStatus = 0
	SubmissionStatusCompleted SubmissionStatus = 1
)

// Publication is a time-bounded instance of a template version open for
// submissions, scoped to a cohort. Immutable once created.
type Publication struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TemplateCode string    `gorm:"column:template_code;not null;uniqueIndex:idx_publication_code_version" json:"template_code"`
	Version      int       `gorm:"column:version;not null;uniqueIndex:idx_publication_code_version" json:"version"`
	FiliereID    uuid.UUID `gorm:"type:uuid;not null;index" json:"filiere_id"`
	StartAt      time.Time `gorm:"column:start_at;not null" json:"start_at"`
	EndAt        time.Time `gorm:"column:end_at;not null" json:"end_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Publication) TableName() string { return "questionnaire_publication" }

// IsOpenAt reports whether now falls inside the half-open [StartAt, EndAt)
// availability window.
func (p *Publication) IsOpenAt(now time.Time) bool {
	return p != nil && !now.Before(p.StartAt) && now.Before(p.EndAt)
}

type Submission struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PublicationID uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_submission_publication_user" json:"publication_id"`
	Publication   *Publication     `gorm:"constraint:OnDelete:CASCADE;foreignKey:PublicationID;references:ID" json:"publication,omitempty"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submission_publication_user" json:"user_id"`
	Status        SubmissionStatus `gorm:"column:status;not null;default:0" json:"status"`
	SubmittedAt   *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt     time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Submission) TableName() string { return "questionnaire_submission" }

type SubmissionAnswer struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubmissionID uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_answer_submission_question" json:"submission_id"`
	Submission   *Submission `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubmissionID;references:ID" json:"submission,omitempty"`
	QuestionID   uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_answer_submission_question" json:"question_id"`
	ValueNumber  *float64    `gorm:"column:value_number" json:"value_number,omitempty"`
	ValueText    *string     `gorm:"column:value_text" json:"value_text,omitempty"`
	CreatedAt    time.Time   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (SubmissionAnswer) TableName() string { return "questionnaire_submission_answer" }
