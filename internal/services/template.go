package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/repos"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type CreateTemplateInput struct {
	Code      string       `json:"code" binding:"required"`
	FiliereID uuid.UUID    `json:"filiere_id" binding:"required"`
	Role      string       `json:"role" binding:"required"`
	Title     string       `json:"title" binding:"required"`
}

type UpdateTemplateInput struct {
	Title string `json:"title" binding:"required"`
}

type SectionInput struct {
	Title        string `json:"title" binding:"required"`
	DisplayOrder int    `json:"display_order"`
}

type QuestionInput struct {
	Wording   string             `json:"wording" binding:"required"`
	Type      types.QuestionType `json:"type" binding:"required"`
	MaxLength *int               `json:"max_length,omitempty"`
}

// SectionView is a section with its questions fetched explicitly; entities
// stay flat, child collections are joined on demand.
type SectionView struct {
	types.Section
	Questions []*types.Question `json:"questions"`
}

type TemplateView struct {
	types.Template
	Sections []*SectionView `json:"sections"`
}

type TemplateService interface {
	CreateTemplate(ctx context.Context, tx *gorm.DB, input CreateTemplateInput) (*types.Template, error)
	GetTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*TemplateView, error)
	ListTemplates(ctx context.Context, tx *gorm.DB) ([]*types.Template, error)
	UpdateTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, input UpdateTemplateInput) (*types.Template, error)
	DeleteTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) error
	// Publish flips the template Draft→Published. One-way; it does not open
	// an availability window (see PublicationService).
	Publish(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*types.Template, error)

	AddSection(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, input SectionInput) (*types.Section, error)
	UpdateSection(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID, input SectionInput) (*types.Section, error)
	DeleteSection(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID) error
	ListSections(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]*SectionView, error)

	AddQuestion(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID, input QuestionInput) (*types.Question, error)
	UpdateQuestion(ctx context.Context, tx *gorm.DB, templateID, questionID uuid.UUID, input QuestionInput) (*types.Question, error)
	DeleteQuestion(ctx context.Context, tx *gorm.DB, templateID, questionID uuid.UUID) error
}

type templateService struct {
	db           *gorm.DB
	log          *logger.Logger
	templateRepo repos.TemplateRepo
	sectionRepo  repos.SectionRepo
	questionRepo repos.QuestionRepo
	pubRepo      repos.PublicationRepo
}

func NewTemplateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	templateRepo repos.TemplateRepo,
	sectionRepo repos.SectionRepo,
	questionRepo repos.QuestionRepo,
	pubRepo repos.PublicationRepo,
) TemplateService {
	serviceLog := baseLog.With("service", "TemplateService")
	return &templateService{
		db:           db,
		log:          serviceLog,
		templateRepo: templateRepo,
		sectionRepo:  sectionRepo,
		questionRepo: questionRepo,
		pubRepo:      pubRepo,
	}
}

func (ts *templateService) CreateTemplate(ctx context.Context, tx *gorm.DB, input CreateTemplateInput) (*types.Template, error) {
	if !validTemplateRole(input.Role) {
		return nil, apperr.InvalidState(fmt.Sprintf("unknown template role %q", input.Role))
	}

	now := time.Now().UTC()
	template := &types.Template{
		ID:        uuid.New(),
		Code:      input.Code,
		Version:   1,
		FiliereID: input.FiliereID,
		Role:      input.Role,
		Title:     input.Title,
		Status:    types.TemplateStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// (code, version) uniqueness is not pre-checked; the unique index is
	// authoritative and the violation surfaces as a conflict.
	if _, err := ts.templateRepo.Create(ctx, tx, []*types.Template{template}); err != nil {
		ts.log.Error("CreateTemplate failed", "error", err, "code", input.Code)
		return nil, apperr.Translate(fmt.Errorf("create template: %w", err))
	}
	return template, nil
}

func (ts *templateService) GetTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*TemplateView, error) {
	template, err := ts.loadTemplate(ctx, tx, templateID)
	if err != nil {
		return nil, err
	}
	sections, err := ts.ListSections(ctx, tx, templateID)
	if err != nil {
		return nil, err
	}
	return &TemplateView{Template: *template, Sections: sections}, nil
}

func (ts *templateService) ListTemplates(ctx context.Context, tx *gorm.DB) ([]*types.Template, error) {
	templates, err := ts.templateRepo.GetAll(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (ts *templateService) UpdateTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, input UpdateTemplateInput) (*types.Template, error) {
	template, err := ts.loadDraftTemplate(ctx, tx, templateID)
	if err != nil {
		return nil, err
	}
	template.Title = input.Title
	template.UpdatedAt = time.Now().UTC()
	if err := ts.templateRepo.Update(ctx, tx, template); err != nil {
		return nil, apperr.Translate(fmt.Errorf("update template: %w", err))
	}
	return template, nil
}

func (ts *templateService) DeleteTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) error {
	template, err := ts.loadTemplate(ctx, tx, templateID)
	if err != nil {
		return err
	}

	// A template referenced by a publication is never physically deleted.
	pubs, err := ts.pubRepo.GetByCodes(ctx, tx, []string{template.Code})
	if err != nil {
		return fmt.Errorf("load publications for template: %w", err)
	}
	for _, pub := range pubs {
		if pub.Version == template.Version {
			return apperr.Conflict("template is referenced by a publication")
		}
	}

	run := func(transaction *gorm.DB) error {
		sections, err := ts.sectionRepo.GetByTemplateIDs(ctx, transaction, []uuid.UUID{templateID})
		if err != nil {
			return fmt.Errorf("load sections: %w", err)
		}
		sectionIDs := make([]uuid.UUID, 0, len(sections))
		for _, s := range sections {
			sectionIDs = append(sectionIDs, s.ID)
		}
		if err := ts.questionRepo.FullDeleteBySectionIDs(ctx, transaction, sectionIDs); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := ts.sectionRepo.FullDeleteByTemplateIDs(ctx, transaction, []uuid.UUID{templateID}); err != nil {
			return fmt.Errorf("delete sections: %w", err)
		}
		return ts.templateRepo.FullDeleteByIDs(ctx, transaction, []uuid.UUID{templateID})
	}
	if tx != nil {
		return run(tx)
	}
	return ts.db.Transaction(run)
}

func (ts *templateService) Publish(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*types.Template, error) {
	template, err := ts.loadTemplate(ctx, tx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsDraft() {
		return nil, apperr.InvalidState("template already published")
	}
	template.Status = types.TemplateStatusPublished
	template.UpdatedAt = time.Now().UTC()
	if err := ts.templateRepo.Update(ctx, tx, template); err != nil {
		ts.log.Error("Publish failed", "error", err, "template_id", templateID)
		return nil, apperr.Translate(fmt.Errorf("publish template: %w", err))
	}
	return template, nil
}

func (ts *templateService) AddSection(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, input SectionInput) (*types.Section, error) {
	if _, err := ts.loadDraftTemplate(ctx, tx, templateID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	section := &types.Section{
		ID:           uuid.New(),
		TemplateID:   templateID,
		Title:        input.Title,
		DisplayOrder: input.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := ts.sectionRepo.Create(ctx, tx, []*types.Section{section}); err != nil {
		ts.log.Error("AddSection failed", "error", err, "template_id", templateID)
		return nil, apperr.Translate(fmt.Errorf("add section: %w", err))
	}
	return section, nil
}

func (ts *templateService) UpdateSection(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID, input SectionInput) (*types.Section, error) {
	if _, err := ts.loadDraftTemplate(ctx, tx, templateID); err != nil {
		return nil, err
	}
	section, err := ts.loadOwnedSection(ctx, tx, templateID, sectionID)
	if err != nil {
		return nil, err
	}
	section.Title = input.Title
	section.DisplayOrder = input.DisplayOrder
	section.UpdatedAt = time.Now().UTC()
	if err := ts.sectionRepo.Update(ctx, tx, section); err != nil {
		return nil, apperr.Translate(fmt.Errorf("update section: %w", err))
	}
	return section, nil
}

func (ts *templateService) DeleteSection(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID) error {
	if _, err := ts.loadDraftTemplate(ctx, tx, templateID); err != nil {
		return err
	}
	if _, err := ts.loadOwnedSection(ctx, tx, templateID, sectionID); err != nil {
		return err
	}

	run := func(transaction *gorm.DB) error {
		if err := ts.questionRepo.FullDeleteBySectionIDs(ctx, transaction, []uuid.UUID{sectionID}); err != nil {
			return fmt.Errorf("delete section questions: %w", err)
		}
		return ts.sectionRepo.FullDeleteByIDs(ctx, transaction, []uuid.UUID{sectionID})
	}
	if tx != nil {
		return run(tx)
	}
	return ts.db.Transaction(run)
}

func (ts *templateService) ListSections(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]*SectionView, error) {
	if _, err := ts.loadTemplate(ctx, tx, templateID); err != nil {
		return nil, err
	}
	sections, err := ts.sectionRepo.GetByTemplateIDs(ctx, tx, []uuid.UUID{templateID})
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	sectionIDs := make([]uuid.UUID, 0, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
	}
	questions, err := ts.questionRepo.GetBySectionIDs(ctx, tx, sectionIDs)
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
	return views, nil
}

func (ts *templateService) AddQuestion(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID, input QuestionInput) (*types.Question, error) {
	if _, err := ts.loadDraftTemplate(ctx, tx, templateID); err != nil {
		return nil, err
	}
	if _, err := ts.loadOwnedSection(ctx, tx, templateID, sectionID); err != nil {
		return nil, err
	}
	if !validQuestionType(input.Type) {
		return nil, apperr.InvalidState(fmt.Sprintf("unknown question type %d", input.Type))
	}

	now := time.Now().UTC()
	question := &types.Question{
		ID:        uuid.New(),
		SectionID: sectionID,
		Wording:   input.Wording,
		Type:      input.Type,
		Mandatory: true,
		MaxLength: maxLengthFor(input.Type, input.MaxLength),
		Options:   types.OptionsJSONFor(input.Type),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := ts.questionRepo.Create(ctx, tx, []*types.Question{question}); err != nil {
		ts.log.Error("AddQuestion failed", "error", err, "section_id", sectionID)
		return nil, apperr.Translate(fmt.Errorf("add question: %w", err))
	}
	return question, nil
}

func (ts *templateService) UpdateQuestion(ctx context.Context, tx *gorm.DB, templateID, questionID uuid.UUID, input QuestionInput) (*types.Question, error) {
	if _, err := ts.loadDraftTemplate(ctx, tx, templateID); err != nil {
		return nil, err
	}
	question, err := ts.loadOwnedQuestion(ctx, tx, templateID, questionID)
	if err != nil {
		return nil, err
	}
	if !validQuestionType(input.Type) {
		return nil, apperr.InvalidState(fmt.Sprintf("unknown question type %d", input.Type))
	}

	question.Wording = input.Wording
	question.Type = input.Type
	question.MaxLength = maxLengthFor(input.Type, input.MaxLength)
	// Options always follow the type; caller-supplied options are ignored.
	question.Options = types.OptionsJSONFor(input.Type)
	question.UpdatedAt = time.Now().UTC()
	if err := ts.questionRepo.Update(ctx, tx, question); err != nil {
		return nil, apperr.Translate(fmt.Errorf("update question: %w", err))
	}
	return question, nil
}

func (ts *templateService) DeleteQuestion(ctx context.Context, tx *gorm.DB, templateID, questionID uuid.UUID) error {
	if _, err := ts.loadDraftTemplate(ctx, tx, templateID); err != nil {
		return err
	}
	if _, err := ts.loadOwnedQuestion(ctx, tx, templateID, questionID); err != nil {
		return err
	}
	return ts.questionRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{questionID})
}

func (ts *templateService) loadTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*types.Template, error) {
	templates, err := ts.templateRepo.GetByIDs(ctx, tx, []uuid.UUID{templateID})
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if len(templates) == 0 || templates[0] == nil {
		return nil, apperr.NotFound("template not found")
	}
	return templates[0], nil
}

// loadDraftTemplate is the single publish-guard: every structural mutation
// goes through it, so no mutation path can touch a published template.
func (ts *templateService) loadDraftTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*types.Template, error) {
	template, err := ts.loadTemplate(ctx, tx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsDraft() {
		return nil, apperr.InvalidState("template is published; structure is frozen")
	}
	return template, nil
}

func (ts *templateService) loadOwnedSection(ctx context.Context, tx *gorm.DB, templateID, sectionID uuid.UUID) (*types.Section, error) {
	sections, err := ts.sectionRepo.GetByIDs(ctx, tx, []uuid.UUID{sectionID})
	if err != nil {
		return nil, fmt.Errorf("load section: %w", err)
	}
	if len(sections) == 0 || sections[0] == nil || sections[0].TemplateID != templateID {
		return nil, apperr.NotFound("section not found under template")
	}
	return sections[0], nil
}

func (ts *templateService) loadOwnedQuestion(ctx context.Context, tx *gorm.DB, templateID, questionID uuid.UUID) (*types.Question, error) {
	questions, err := ts.questionRepo.GetByIDs(ctx, tx, []uuid.UUID{questionID})
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if len(questions) == 0 || questions[0] == nil {
		return nil, apperr.NotFound("question not found under template")
	}
	if _, err := ts.loadOwnedSection(ctx, tx, templateID, questions[0].SectionID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("question not found under template")
		}
		return nil, err
	}
	return questions[0], nil
}

func maxLengthFor(t types.QuestionType, maxLength *int) *int {
	// MaxLength is meaningful for free-text questions only.
	if t != types.QuestionTypeText {
		return nil
	}
	return maxLength
}

func validQuestionType(t types.QuestionType) bool {
	switch t {
	case types.QuestionTypeLikert, types.QuestionTypeBinary, types.QuestionTypeText:
		return true
	default:
		return false
	}
}

func validTemplateRole(role string) bool {
	switch role {
	case types.RoleStudent, types.RoleProfessor, types.RoleProfessional:
		return true
	default:
		return false
	}
}
