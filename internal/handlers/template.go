package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/services"
)

type TemplateHandler struct {
	log             *logger.Logger
	templateService services.TemplateService
}

func NewTemplateHandler(log *logger.Logger, templateService services.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		log:             log.With("handler", "TemplateHandler"),
		templateService: templateService,
	}
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var input services.CreateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	template, err := h.templateService.CreateTemplate(c.Request.Context(), nil, input)
	if err != nil {
		h.log.Error("Create failed", "error", err, "code", input.Code)
		RespondServiceError(c, "create_template_failed", err)
		return
	}
	RespondOK(c, gin.H{"template": template})
}

func (h *TemplateHandler) Get(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.templateService.GetTemplate(c.Request.Context(), nil, templateID)
	if err != nil {
		RespondServiceError(c, "load_template_failed", err)
		return
	}
	RespondOK(c, gin.H{"template": view})
}

func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templateService.ListTemplates(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("List failed", "error", err)
		RespondServiceError(c, "list_templates_failed", err)
		return
	}
	RespondOK(c, gin.H{"templates": templates})
}

func (h *TemplateHandler) Update(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.UpdateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	template, err := h.templateService.UpdateTemplate(c.Request.Context(), nil, templateID, input)
	if err != nil {
		RespondServiceError(c, "update_template_failed", err)
		return
	}
	RespondOK(c, gin.H{"template": template})
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.templateService.DeleteTemplate(c.Request.Context(), nil, templateID); err != nil {
		RespondServiceError(c, "delete_template_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": templateID})
}

func (h *TemplateHandler) Publish(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	template, err := h.templateService.Publish(c.Request.Context(), nil, templateID)
	if err != nil {
		RespondServiceError(c, "publish_template_failed", err)
		return
	}
	RespondOK(c, gin.H{"template": template})
}

func (h *TemplateHandler) AddSection(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.SectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	section, err := h.templateService.AddSection(c.Request.Context(), nil, templateID, input)
	if err != nil {
		RespondServiceError(c, "add_section_failed", err)
		return
	}
	RespondOK(c, gin.H{"section": section})
}

func (h *TemplateHandler) ListSections(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sections, err := h.templateService.ListSections(c.Request.Context(), nil, templateID)
	if err != nil {
		RespondServiceError(c, "list_sections_failed", err)
		return
	}
	RespondOK(c, gin.H{"sections": sections})
}

func (h *TemplateHandler) GetSection(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := pathUUID(c, "sectionId")
	if !ok {
		return
	}
	sections, err := h.templateService.ListSections(c.Request.Context(), nil, templateID)
	if err != nil {
		RespondServiceError(c, "load_section_failed", err)
		return
	}
	for _, section := range sections {
		if section.ID == sectionID {
			RespondOK(c, gin.H{"section": section})
			return
		}
	}
	RespondError(c, http.StatusNotFound, "section_not_found", nil)
}

func (h *TemplateHandler) UpdateSection(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := pathUUID(c, "sectionId")
	if !ok {
		return
	}
	var input services.SectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	section, err := h.templateService.UpdateSection(c.Request.Context(), nil, templateID, sectionID, input)
	if err != nil {
		RespondServiceError(c, "update_section_failed", err)
		return
	}
	RespondOK(c, gin.H{"section": section})
}

func (h *TemplateHandler) DeleteSection(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := pathUUID(c, "sectionId")
	if !ok {
		return
	}
	if err := h.templateService.DeleteSection(c.Request.Context(), nil, templateID, sectionID); err != nil {
		RespondServiceError(c, "delete_section_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": sectionID})
}

func (h *TemplateHandler) AddQuestion(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := pathUUID(c, "sectionId")
	if !ok {
		return
	}
	var input services.QuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	question, err := h.templateService.AddQuestion(c.Request.Context(), nil, templateID, sectionID, input)
	if err != nil {
		RespondServiceError(c, "add_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"question": question})
}

func (h *TemplateHandler) ListQuestions(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := pathUUID(c, "sectionId")
	if !ok {
		return
	}
	sections, err := h.templateService.ListSections(c.Request.Context(), nil, templateID)
	if err != nil {
		RespondServiceError(c, "list_questions_failed", err)
		return
	}
	for _, section := range sections {
		if section.ID == sectionID {
			RespondOK(c, gin.H{"questions": section.Questions})
			return
		}
	}
	RespondError(c, http.StatusNotFound, "section_not_found", nil)
}

func (h *TemplateHandler) GetQuestion(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	questionID, ok := pathUUID(c, "questionId")
	if !ok {
		return
	}
	sections, err := h.templateService.ListSections(c.Request.Context(), nil, templateID)
	if err != nil {
		RespondServiceError(c, "load_question_failed", err)
		return
	}
	for _, section := range sections {
		for _, question := range section.Questions {
			if question.ID == questionID {
				RespondOK(c, gin.H{"question": question})
				return
			}
		}
	}
	RespondError(c, http.StatusNotFound, "question_not_found", nil)
}

func (h *TemplateHandler) UpdateQuestion(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	questionID, ok := pathUUID(c, "questionId")
	if !ok {
		return
	}
	var input services.QuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	question, err := h.templateService.UpdateQuestion(c.Request.Context(), nil, templateID, questionID, input)
	if err != nil {
		RespondServiceError(c, "update_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"question": question})
}

func (h *TemplateHandler) DeleteQuestion(c *gin.Context) {
	templateID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	questionID, ok := pathUUID(c, "questionId")
	if !ok {
		return
	}
	if err := h.templateService.DeleteQuestion(c.Request.Context(), nil, templateID, questionID); err != nil {
		RespondServiceError(c, "delete_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": questionID})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}
