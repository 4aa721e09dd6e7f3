package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Analysis    *AnalysisHandler
	Results     *ResultHandler
	JobCriteria *JobCriteriaHandler
}

// SetupRoutes mounts the API under /api/v1.
func SetupRoutes(app *fiber.App, h Handlers, cookieName string, sessionTTL time.Duration) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/job-criteria/preview", h.JobCriteria.HandlePreview)
	api.Put("/job-criteria", h.JobCriteria.HandleUpdate)
	api.Get("/job-criteria", h.JobCriteria.HandleCurrent)

	withSession := SessionMiddleware(cookieName, sessionTTL)
	api.Post("/analyze", withSession, h.Analysis.HandleAnalyze)
	api.Get("/results", withSession, h.Results.HandleGetResults)
	api.Delete("/results", withSession, h.Results.HandleClear)
	api.Get("/results/export", withSession, h.Results.HandleExport)
	api.Post("/results/:index/feedback", withSession, h.Results.HandleFeedback)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Analysis Tool API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/analyze",
				"GET /api/v1/results",
				"DELETE /api/v1/results",
				"GET /api/v1/results/export",
				"POST /api/v1/results/:index/feedback",
				"POST /api/v1/job-criteria/preview",
				"PUT /api/v1/job-criteria",
				"GET /api/v1/job-criteria",
			},
		})
	})
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
