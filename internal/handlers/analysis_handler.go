package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analysis-tool/internal/models"
	"alfredoptarigan/cv-analysis-tool/internal/services"
)

type AnalysisHandler struct {
	workflow    services.WorkflowService
	maxFileSize int64
}

func NewAnalysisHandler(workflow services.WorkflowService, maxFileSize int64) *AnalysisHandler {
	return &AnalysisHandler{
		workflow:    workflow,
		maxFileSize: maxFileSize,
	}
}

// HandleAnalyze handles POST /analyze. CVs are posted as multipart "cvs".
func (h *AnalysisHandler) HandleAnalyze(c *fiber.Ctx) error {
	files, err := readUploads(c, "cvs", cvExtensions, h.maxFileSize)
	if err != nil {
		return uploadErrorJSON(c, err)
	}

	sid := sessionID(c)
	outcome, err := h.workflow.Analyze(c.UserContext(), sid, files)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoFiles):
			return errorJSON(c, fiber.StatusBadRequest, "Please upload one or more CV files as 'cvs' to begin analysis.")
		case errors.Is(err, services.ErrBatchInProgress):
			return errorJSON(c, fiber.StatusConflict, err.Error())
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(models.AnalyzeResponse{
		SessionID: sid,
		State:     string(outcome.Session.State),
		Rerun:     outcome.Rerun,
		Results:   services.RenderResults(outcome.Session.Results),
		Errors:    outcome.Errors,
	})
}
