package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/services"
)

type PublicationHandler struct {
	log                *logger.Logger
	publicationService services.PublicationService
	exportService      services.ExportService
}

func NewPublicationHandler(log *logger.Logger, publicationService services.PublicationService, exportService services.ExportService) *PublicationHandler {
	return &PublicationHandler{
		log:                log.With("handler", "PublicationHandler"),
		publicationService: publicationService,
		exportService:      exportService,
	}
}

// Open creates the availability window for a template version.
func (h *PublicationHandler) Open(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.OpenPublicationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	publication, err := h.publicationService.OpenPublication(c.Request.Context(), nil, templateID, input)
	if err != nil {
		h.log.Error("Open failed", "error", err, "template_id", templateID)
		RespondServiceError(c, "open_publication_failed", err)
		return
	}
	RespondOK(c, gin.H{"publication": publication})
}

// List serves the statistics collaborator.
func (h *PublicationHandler) List(c *gin.Context) {
	publications, err := h.exportService.ListPublications(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("List failed", "error", err)
		RespondServiceError(c, "list_publications_failed", err)
		return
	}
	RespondOK(c, gin.H{"publications": publications})
}

// Submissions serves the flattened export for one publication.
func (h *PublicationHandler) Submissions(c *gin.Context) {
	publicationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	export, err := h.exportService.PublicationSubmissions(c.Request.Context(), nil, publicationID)
	if err != nil {
		RespondServiceError(c, "export_submissions_failed", err)
		return
	}
	RespondOK(c, export)
}
