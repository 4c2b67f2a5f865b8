package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/services"
)

// QuestionnaireHandler serves the student, professor and professional
// respondent endpoints. The route group fixes the role; the service scopes
// by the caller's claims.
type QuestionnaireHandler struct {
	log                  *logger.Logger
	questionnaireService services.QuestionnaireService
}

func NewQuestionnaireHandler(log *logger.Logger, questionnaireService services.QuestionnaireService) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		log:                  log.With("handler", "QuestionnaireHandler"),
		questionnaireService: questionnaireService,
	}
}

func (h *QuestionnaireHandler) ListOpen(c *gin.Context) {
	questionnaires, err := h.questionnaireService.ListOpen(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("ListOpen failed", "error", err)
		RespondServiceError(c, "list_questionnaires_failed", err)
		return
	}
	RespondOK(c, gin.H{"questionnaires": questionnaires})
}

func (h *QuestionnaireHandler) Submit(c *gin.Context) {
	templateCode := c.Param("templateCode")
	if templateCode == "" {
		RespondError(c, http.StatusBadRequest, "missing_template_code", nil)
		return
	}
	var input services.SubmitAnswersInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	submission, err := h.questionnaireService.SubmitAnswers(c.Request.Context(), nil, templateCode, input)
	if err != nil {
		RespondServiceError(c, "submit_answers_failed", err)
		return
	}
	RespondOK(c, gin.H{"submission": submission})
}

func (h *QuestionnaireHandler) Complete(c *gin.Context) {
	templateCode := c.Param("templateCode")
	if templateCode == "" {
		RespondError(c, http.StatusBadRequest, "missing_template_code", nil)
		return
	}
	submission, err := h.questionnaireService.Complete(c.Request.Context(), nil, templateCode)
	if err != nil {
		RespondServiceError(c, "complete_submission_failed", err)
		return
	}
	RespondOK(c, gin.H{"submission": submission})
}
