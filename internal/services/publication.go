package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/repos"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type OpenPublicationInput struct {
	StartAt time.Time `json:"start_at" binding:"required"`
	EndAt   time.Time `json:"end_at" binding:"required"`
}

type PublicationService interface {
	// OpenPublication opens the [startAt, endAt) availability window for the
	// template's current version, scoped to the template's cohort. One
	// publication per (templateCode, version); there is no endpoint to
	// retire a window early.
	OpenPublication(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, input OpenPublicationInput) (*types.Publication, error)
	ListPublications(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error)
}

type publicationService struct {
	db           *gorm.DB
	log          *logger.Logger
	templateRepo repos.TemplateRepo
	pubRepo      repos.PublicationRepo
}

func NewPublicationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	templateRepo repos.TemplateRepo,
	pubRepo repos.PublicationRepo,
) PublicationService {
	serviceLog := baseLog.With("service", "PublicationService")
	return &publicationService{
		db:           db,
		log:          serviceLog,
		templateRepo: templateRepo,
		pubRepo:      pubRepo,
	}
}

func (ps *publicationService) OpenPublication(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, input OpenPublicationInput) (*types.Publication, error) {
	if !input.StartAt.Before(input.EndAt) {
		return nil, apperr.InvalidState("publication window must start before it ends")
	}

	templates, err := ps.templateRepo.GetByIDs(ctx, tx, []uuid.UUID{templateID})
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if len(templates) == 0 || templates[0] == nil {
		return nil, apperr.NotFound("template not found")
	}
	template := templates[0]
	if template.IsDraft() {
		return nil, apperr.InvalidState("template must be published before a window can open")
	}

	publication := &types.Publication{
		ID:           uuid.New(),
		TemplateCode: template.Code,
		Version:      template.Version,
		FiliereID:    template.FiliereID,
		StartAt:      input.StartAt.UTC(),
		EndAt:        input.EndAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := ps.pubRepo.Create(ctx, tx, []*types.Publication{publication}); err != nil {
		ps.log.Error("OpenPublication failed", "error", err, "template_code", template.Code, "version", template.Version)
		return nil, apperr.Translate(fmt.Errorf("open publication: %w", err))
	}
	return publication, nil
}

func (ps *publicationService) ListPublications(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error) {
	pubs, err := ps.pubRepo.GetAll(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return pubs, nil
}
