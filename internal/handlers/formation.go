package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/services"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

// FormationHandler is the HTTP relay side of the formation-created consumer
// boundary; the broker subscription feeds the same service.
type FormationHandler struct {
	log              *logger.Logger
	formationService services.FormationService
}

func NewFormationHandler(log *logger.Logger, formationService services.FormationService) *FormationHandler {
	return &FormationHandler{
		log:              log.With("handler", "FormationHandler"),
		formationService: formationService,
	}
}

func (h *FormationHandler) Ingest(c *gin.Context) {
	var event types.FormationCreatedEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	formation, err := h.formationService.AddOrUpdateFormation(c.Request.Context(), nil, event)
	if err != nil {
		h.log.Error("Ingest failed", "error", err, "code", event.Code)
		RespondServiceError(c, "ingest_formation_failed", err)
		return
	}
	RespondOK(c, gin.H{"formation": formation})
}

func (h *FormationHandler) List(c *gin.Context) {
	formations, err := h.formationService.ListFormations(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, "list_formations_failed", err)
		return
	}
	RespondOK(c, gin.H{"formations": formations})
}
