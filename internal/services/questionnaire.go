package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/repos"
	"github.com/campuspulse/campuspulse-backend/internal/requestdata"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type AnswerInput struct {
	QuestionID  uuid.UUID `json:"question_id" binding:"required"`
	ValueNumber *float64  `json:"value_number,omitempty"`
	ValueText   *string   `json:"value_text,omitempty"`
}

type SubmitAnswersInput struct {
	Answers []AnswerInput `json:"answers" binding:"required"`
}

// OpenQuestionnaire is one currently-open publication together with the
// template structure a respondent needs to render it.
type OpenQuestionnaire struct {
	Publication *types.Publication `json:"publication"`
	Template    *TemplateView      `json:"template"`
}

// QuestionnaireService serves the role-scoped respondent surface. The
// caller's role and cohort come from the request claims; students only see
// publications for their own filiere, professors and professionals see every
// publication matching their role.
type QuestionnaireService interface {
	ListOpen(ctx context.Context, tx *gorm.DB) ([]*OpenQuestionnaire, error)
	SubmitAnswers(ctx context.Context, tx *gorm.DB, templateCode string, input SubmitAnswersInput) (*types.Submission, error)
	// Complete marks the caller's submission Completed and stamps
	// SubmittedAt. Answer submission never completes implicitly.
	Complete(ctx context.Context, tx *gorm.DB, templateCode string) (*types.Submission, error)
}

type questionnaireService struct {
	db             *gorm.DB
	log            *logger.Logger
	templateRepo   repos.TemplateRepo
	sectionRepo    repos.SectionRepo
	questionRepo   repos.QuestionRepo
	pubRepo        repos.PublicationRepo
	submissionRepo repos.SubmissionRepo
	answerRepo     repos.SubmissionAnswerRepo
	now            func() time.Time
}

func NewQuestionnaireService(
	db *gorm.DB,
	baseLog *logger.Logger,
	templateRepo repos.TemplateRepo,
	sectionRepo repos.SectionRepo,
	questionRepo repos.QuestionRepo,
	pubRepo repos.PublicationRepo,
	submissionRepo repos.SubmissionRepo,
	answerRepo repos.SubmissionAnswerRepo,
) QuestionnaireService {
	serviceLog := baseLog.With("service", "QuestionnaireService")
	return &questionnaireService{
		db:             db,
		log:            serviceLog,
		templateRepo:   templateRepo,
		sectionRepo:    sectionRepo,
		questionRepo:   questionRepo,
		pubRepo:        pubRepo,
		submissionRepo: submissionRepo,
		answerRepo:     answerRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (qs *questionnaireService) ListOpen(ctx context.Context, tx *gorm.DB) ([]*OpenQuestionnaire, error) {
	rd, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	pubs, err := qs.pubRepo.GetOpenAt(ctx, tx, qs.now())
	if err != nil {
		return nil, fmt.Errorf("load open publications: %w", err)
	}

	codes := make([]string, 0, len(pubs))
	for _, pub := range pubs {
		codes = append(codes, pub.TemplateCode)
	}
	templates, err := qs.templateRepo.GetByCodes(ctx, tx, codes)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	templateByKey := make(map[string]*types.Template, len(templates))
	for _, t := range templates {
		templateByKey[templateKey(t.Code, t.Version)] = t
	}

	var out []*OpenQuestionnaire
	for _, pub := range pubs {
		template := templateByKey[templateKey(pub.TemplateCode, pub.Version)]
		if template == nil || template.Role != rd.Role {
			continue
		}
		// Cohort scoping applies to students only.
		if rd.Role == types.RoleStudent && pub.FiliereID != rd.FiliereID {
			continue
		}
		view, err := qs.templateView(ctx, tx, template)
		if err != nil {
			return nil, err
		}
		out = append(out, &OpenQuestionnaire{Publication: pub, Template: view})
	}
	return out, nil
}

func (qs *questionnaireService) SubmitAnswers(ctx context.Context, tx *gorm.DB, templateCode string, input SubmitAnswersInput) (*types.Submission, error) {
	rd, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	var submission *types.Submission
	run := func(transaction *gorm.DB) error {
		pub, template, err := qs.resolveOpenPublication(ctx, transaction, rd, templateCode)
		if err != nil {
			return err
		}

		submission, err = qs.findOrCreateSubmission(ctx, transaction, pub.ID, rd.UserID)
		if err != nil {
			return err
		}

		questions, err := qs.templateQuestions(ctx, transaction, template)
		if err != nil {
			return err
		}

		for _, answer := range input.Answers {
			question := questions[answer.QuestionID]
			if question == nil {
				return apperr.NotFound("question not found under publication")
			}
			if err := validateAnswerValue(question, answer); err != nil {
				return err
			}
			if err := qs.addOrUpdateAnswer(ctx, transaction, submission.ID, answer); err != nil {
				return err
			}
		}
		return nil
	}

	if tx != nil {
		err = run(tx)
	} else {
		err = qs.db.Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	return submission, nil
}

func (qs *questionnaireService) Complete(ctx context.Context, tx *gorm.DB, templateCode string) (*types.Submission, error) {
	rd, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	pub, _, err := qs.resolveOpenPublication(ctx, tx, rd, templateCode)
	if err != nil {
		return nil, err
	}
	submission, err := qs.submissionRepo.GetByPublicationAndUser(ctx, tx, pub.ID, rd.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no submission to complete")
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}

	now := qs.now()
	submission.Status = types.SubmissionStatusCompleted
	submission.SubmittedAt = &now
	submission.UpdatedAt = now
	if err := qs.submissionRepo.Update(ctx, tx, submission); err != nil {
		qs.log.Error("Complete failed", "error", err, "submission_id", submission.ID)
		return nil, fmt.Errorf("complete submission: %w", err)
	}
	return submission, nil
}

// resolveOpenPublication finds the latest publication for the code whose
// window contains now and checks the caller may answer it. A closed window
// is indistinguishable from an absent one: both are not found.
func (qs *questionnaireService) resolveOpenPublication(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, templateCode string) (*types.Publication, *types.Template, error) {
	pub, err := qs.pubRepo.GetLatestOpenByCode(ctx, tx, templateCode, qs.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("no open publication for template code")
		}
		return nil, nil, fmt.Errorf("load publication: %w", err)
	}

	template, err := qs.templateRepo.GetByCodeAndVersion(ctx, tx, pub.TemplateCode, pub.Version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("template not found for publication")
		}
		return nil, nil, fmt.Errorf("load template: %w", err)
	}
	if template.Role != rd.Role {
		return nil, nil, apperr.NotFound("no open publication for template code")
	}
	if rd.Role == types.RoleStudent && pub.FiliereID != rd.FiliereID {
		return nil, nil, apperr.NotFound("no open publication for template code")
	}
	return pub, template, nil
}

// findOrCreateSubmission is a lazy create under the unique
// (publication_id, user_id) index. The insert carries an on-conflict
// do-nothing clause, so a concurrent first answer that loses the race raises
// no error (and cannot abort the enclosing transaction); the follow-up read
// returns whichever row survived.
func (qs *questionnaireService) findOrCreateSubmission(ctx context.Context, tx *gorm.DB, publicationID, userID uuid.UUID) (*types.Submission, error) {
	existing, err := qs.submissionRepo.GetByPublicationAndUser(ctx, tx, publicationID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	now := qs.now()
	submission := &types.Submission{
		ID:            uuid.New(),
		PublicationID: publicationID,
		UserID:        userID,
		Status:        types.SubmissionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := qs.submissionRepo.CreateIfAbsent(ctx, tx, submission); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return qs.submissionRepo.GetByPublicationAndUser(ctx, tx, publicationID, userID)
}

// addOrUpdateAnswer records the answer for the question, overwriting any
// previous values. The unique (submission_id, question_id) index is the
// authoritative at-most-one guarantee; the existence pre-check only decides
// whether to keep the original created_at.
func (qs *questionnaireService) addOrUpdateAnswer(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, input AnswerInput) error {
	now := qs.now()
	row := &types.SubmissionAnswer{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		QuestionID:   input.QuestionID,
		ValueNumber:  input.ValueNumber,
		ValueText:    input.ValueText,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	existing, err := qs.answerRepo.GetBySubmissionAndQuestion(ctx, tx, submissionID, input.QuestionID)
	if err == nil {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load answer: %w", err)
	}
	if err := qs.answerRepo.Upsert(ctx, tx, row); err != nil {
		return apperr.Translate(fmt.Errorf("upsert answer: %w", err))
	}
	return nil
}

func (qs *questionnaireService) templateView(ctx context.Context, tx *gorm.DB, template *types.Template) (*TemplateView, error) {
	sections, err := qs.sectionRepo.GetByTemplateIDs(ctx, tx, []uuid.UUID{template.ID})
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	sectionIDs := make([]uuid.UUID, 0, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
	}
	questions, err := qs.questionRepo.GetBySectionIDs(ctx, tx, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	bySection := make(map[uuid.UUID][]*types.Question, len(sections))
	for _, q := range questions {
		bySection[q.SectionID] = append(bySection[q.SectionID], q)
	}
	views := make([]*SectionView, 0, len(sections))
	for _, s := range sections {
		views = append(views, &SectionView{Section: *s, Questions: bySection[s.ID]})
	}
	return &TemplateView{Template: *template, Sections: views}, nil
}

func (qs *questionnaireService) templateQuestions(ctx context.Context, tx *gorm.DB, template *types.Template) (map[uuid.UUID]*types.Question, error) {
	sections, err := qs.sectionRepo.GetByTemplateIDs(ctx, tx, []uuid.UUID{template.ID})
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	sectionIDs := make([]uuid.UUID, 0, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
	}
	questions, err := qs.questionRepo.GetBySectionIDs(ctx, tx, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID, nil
}

// validateAnswerValue rejects value kinds that do not fit the owning
// question's type, so the nullable columns cannot drift apart.
func validateAnswerValue(question *types.Question, input AnswerInput) error {
	switch question.Type {
	case types.QuestionTypeLikert:
		if input.ValueNumber == nil || input.ValueText != nil {
			return apperr.InvalidState("likert question requires a numeric value")
		}
		if !isWholeNumberIn(*input.ValueNumber, 1, 5) {
			return apperr.InvalidState("likert value must be an integer between 1 and 5")
		}
	case types.QuestionTypeBinary:
		if input.ValueNumber == nil || input.ValueText != nil {
			return apperr.InvalidState("binary question requires a numeric value")
		}
		if !isWholeNumberIn(*input.ValueNumber, 0, 1) {
			return apperr.InvalidState("binary value must be 0 or 1")
		}
	case types.QuestionTypeText:
		if input.ValueText == nil || input.ValueNumber != nil {
			return apperr.InvalidState("text question requires a text value")
		}
		// MaxLength counts characters, not bytes; accented answers must
		// not burn extra budget.
		if question.MaxLength != nil && utf8.RuneCountInString(*input.ValueText) > *question.MaxLength {
			return apperr.InvalidState("text value exceeds max length")
		}
	default:
		return apperr.InvalidState(fmt.Sprintf("unknown question type %d", question.Type))
	}
	return nil
}

func isWholeNumberIn(v, min, max float64) bool {
	return v == math.Trunc(v) && v >= min && v <= max
}

func callerClaims(ctx context.Context) (*requestdata.RequestData, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Forbidden("request data not set in context")
	}
	return rd, nil
}

func templateKey(code string, version int) string {
	return fmt.Sprintf("%s@%d", code, version)
}
