package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/repos"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type AnswerExport struct {
	QuestionID  uuid.UUID          `json:"question_id"`
	Wording     string             `json:"wording"`
	Type        types.QuestionType `json:"type"`
	ValueNumber *float64           `json:"value_number,omitempty"`
	ValueText   *string            `json:"value_text,omitempty"`
}

type SubmissionExport struct {
	SubmissionID uuid.UUID              `json:"submission_id"`
	UserID       uuid.UUID              `json:"user_id"`
	Status       types.SubmissionStatus `json:"status"`
	SubmittedAt  *time.Time             `json:"submitted_at,omitempty"`
	Answers      []AnswerExport         `json:"answers"`
}

type PublicationExport struct {
	Publication   *types.Publication `json:"publication"`
	TemplateTitle string             `json:"template_title"`
	Submissions   []SubmissionExport `json:"submissions"`
}

// ExportService is the read-only denormalized view the statistics service
// consumes. Rendering (Excel/PDF/CSV) happens there, not here.
type ExportService interface {
	ListPublications(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error)
	PublicationSubmissions(ctx context.Context, tx *gorm.DB, publicationID uuid.UUID) (*PublicationExport, error)
}

type exportService struct {
	db             *gorm.DB
	log            *logger.Logger
	templateRepo   repos.TemplateRepo
	sectionRepo    repos.SectionRepo
	questionRepo   repos.QuestionRepo
	pubRepo        repos.PublicationRepo
	submissionRepo repos.SubmissionRepo
	answerRepo     repos.SubmissionAnswerRepo
}

func NewExportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	templateRepo repos.TemplateRepo,
	sectionRepo repos.SectionRepo,
	questionRepo repos.QuestionRepo,
	pubRepo repos.PublicationRepo,
	submissionRepo repos.SubmissionRepo,
	answerRepo repos.SubmissionAnswerRepo,
) ExportService {
	serviceLog := baseLog.With("service", "ExportService")
	return &exportService{
		db:             db,
		log:            serviceLog,
		templateRepo:   templateRepo,
		sectionRepo:    sectionRepo,
		questionRepo:   questionRepo,
		pubRepo:        pubRepo,
		submissionRepo: submissionRepo,
		answerRepo:     answerRepo,
	}
}

func (es *exportService) ListPublications(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error) {
	pubs, err := es.pubRepo.GetAll(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return pubs, nil
}

func (es *exportService) PublicationSubmissions(ctx context.Context, tx *gorm.DB, publicationID uuid.UUID) (*PublicationExport, error) {
	pubs, err := es.pubRepo.GetByIDs(ctx, tx, []uuid.UUID{publicationID})
	if err != nil {
		return nil, fmt.Errorf("load publication: %w", err)
	}
	if len(pubs) == 0 || pubs[0] == nil {
		return nil, apperr.NotFound("publication not found")
	}
	pub := pubs[0]

	var (
		template    *types.Template
		questions   map[uuid.UUID]*types.Question
		submissions []*types.Submission
		answers     []*types.SubmissionAnswer
	)

	loadStructure := func(transaction *gorm.DB) error {
		var err error
		template, err = es.templateRepo.GetByCodeAndVersion(ctx, transaction, pub.TemplateCode, pub.Version)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load template: %w", err)
		}
		questions = map[uuid.UUID]*types.Question{}
		if template == nil {
			return nil
		}
		sections, err := es.sectionRepo.GetByTemplateIDs(ctx, transaction, []uuid.UUID{template.ID})
		if err != nil {
			return fmt.Errorf("load sections: %w", err)
		}
		sectionIDs := make([]uuid.UUID, 0, len(sections))
		for _, s := range sections {
			sectionIDs = append(sectionIDs, s.ID)
		}
		rows, err := es.questionRepo.GetBySectionIDs(ctx, transaction, sectionIDs)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		for _, q := range rows {
			questions[q.ID] = q
		}
		return nil
	}

	loadSubmissions := func(transaction *gorm.DB) error {
		var err error
		submissions, err = es.submissionRepo.GetByPublicationIDs(ctx, transaction, []uuid.UUID{publicationID})
		if err != nil {
			return fmt.Errorf("load submissions: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(submissions))
		for _, s := range submissions {
			ids = append(ids, s.ID)
		}
		answers, err = es.answerRepo.GetBySubmissionIDs(ctx, transaction, ids)
		if err != nil {
			return fmt.Errorf("load answers: %w", err)
		}
		return nil
	}

	if tx != nil {
		// A gorm transaction is not safe for concurrent use; load serially.
		if err := loadStructure(tx); err != nil {
			return nil, err
		}
		if err := loadSubmissions(tx); err != nil {
			return nil, err
		}
	} else {
		var g errgroup.Group
		g.Go(func() error { return loadStructure(nil) })
		g.Go(func() error { return loadSubmissions(nil) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	answersBySubmission := make(map[uuid.UUID][]AnswerExport, len(submissions))
	for _, a := range answers {
		export := AnswerExport{
			QuestionID:  a.QuestionID,
			ValueNumber: a.ValueNumber,
			ValueText:   a.ValueText,
		}
		if q := questions[a.QuestionID]; q != nil {
			export.Wording = q.Wording
			export.Type = q.Type
		}
		answersBySubmission[a.SubmissionID] = append(answersBySubmission[a.SubmissionID], export)
	}

	out := &PublicationExport{Publication: pub}
	if template != nil {
		out.TemplateTitle = template.Title
	}
	for _, s := range submissions {
		out.Submissions = append(out.Submissions, SubmissionExport{
			SubmissionID: s.ID,
			UserID:       s.UserID,
			Status:       s.Status,
			SubmittedAt:  s.SubmittedAt,
			Answers:      answersBySubmission[s.ID],
		})
	}
	return out, nil
}
