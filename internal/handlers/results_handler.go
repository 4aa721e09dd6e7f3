package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analysis-tool/internal/models"
	"alfredoptarigan/cv-analysis-tool/internal/services"
)

type ResultHandler struct {
	workflow services.WorkflowService
}

func NewResultHandler(workflow services.WorkflowService) *ResultHandler {
	return &ResultHandler{
		workflow: workflow,
	}
}

// HandleGetResults handles GET /results.
func (h *ResultHandler) HandleGetResults(c *fiber.Ctx) error {
	sid := sessionID(c)
	session, err := h.workflow.Session(c.UserContext(), sid)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	response := models.ResultsResponse{
		SessionID:         sid,
		State:             string(session.State),
		AnalysisCompleted: session.AnalysisCompleted,
		Results:           services.RenderResults(session.Results),
	}
	if session.State == models.SessionIdle {
		response.Example = services.ExampleAnalysis
	}

	return c.JSON(response)
}

// HandleClear handles DELETE /results.
func (h *ResultHandler) HandleClear(c *fiber.Ctx) error {
	sid := sessionID(c)
	session, err := h.workflow.Clear(c.UserContext(), sid)
	if err != nil {
		if errors.Is(err, services.ErrBatchInProgress) {
			return errorJSON(c, fiber.StatusConflict, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(models.ResultsResponse{
		SessionID:         sid,
		State:             string(session.State),
		AnalysisCompleted: session.AnalysisCompleted,
		Results:           []models.RenderedResult{},
	})
}

// HandleFeedback handles POST /results/:index/feedback.
func (h *ResultHandler) HandleFeedback(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid result index")
	}

	var req models.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request payload")
	}
	if req.Positive == nil {
		return errorJSON(c, fiber.StatusBadRequest, "positive is required")
	}

	resp, err := h.workflow.SubmitFeedback(c.UserContext(), sessionID(c), index, *req.Positive)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotCompleted):
			return errorJSON(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrResultNotFound):
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrFeedbackFailed):
			return errorJSON(c, fiber.StatusBadGateway, err.Error())
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(resp)
}

// HandleExport handles GET /results/export?format=csv|xlsx.
func (h *ResultHandler) HandleExport(c *fiber.Ctx) error {
	file, err := h.workflow.Export(c.UserContext(), sessionID(c), c.Query("format", services.ExportFormatCSV))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotCompleted):
			return errorJSON(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrUnsupportedExportFormat):
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.FileName))
	return c.Send(file.Data)
}
