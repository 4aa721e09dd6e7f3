package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analysis-tool/internal/models"
	"alfredoptarigan/cv-analysis-tool/internal/services"
)

type JobCriteriaHandler struct {
	service     services.JobCriteriaService
	maxFileSize int64
}

func NewJobCriteriaHandler(service services.JobCriteriaService, maxFileSize int64) *JobCriteriaHandler {
	return &JobCriteriaHandler{
		service:     service,
		maxFileSize: maxFileSize,
	}
}

// HandlePreview handles POST /job-criteria/preview.
func (h *JobCriteriaHandler) HandlePreview(c *fiber.Ctx) error {
	file, err := h.readDocument(c)
	if err != nil {
		return uploadErrorJSON(c, err)
	}

	return c.JSON(h.service.Preview(file))
}

// HandleUpdate handles PUT /job-criteria.
func (h *JobCriteriaHandler) HandleUpdate(c *fiber.Ctx) error {
	file, err := h.readDocument(c)
	if err != nil {
		return uploadErrorJSON(c, err)
	}

	criteria, err := h.service.Update(c.UserContext(), file)
	if err != nil {
		return blobErrorJSON(c, fmt.Errorf("failed to update job criteria: %w", err))
	}

	return c.JSON(models.JobCriteriaUpdateResponse{
		Message:     "Job criteria updated successfully!",
		BlobName:    models.JobCriteriaBlobName,
		JobCriteria: *criteria,
	})
}

// HandleCurrent handles GET /job-criteria.
func (h *JobCriteriaHandler) HandleCurrent(c *fiber.Ctx) error {
	criteria, err := h.service.Current(c.UserContext())
	if err != nil {
		return blobErrorJSON(c, fmt.Errorf("failed to load job criteria: %w", err))
	}

	return c.JSON(criteria)
}

func (h *JobCriteriaHandler) readDocument(c *fiber.Ctx) (models.UploadedFile, error) {
	files, err := readUploads(c, "file", jobCriteriaExtensions, h.maxFileSize)
	if err != nil {
		return models.UploadedFile{}, err
	}
	if len(files) == 0 {
		return models.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest,
			"Please upload a job description document as 'file' (PDF, DOCX).")
	}
	return files[0], nil
}

// blobErrorJSON separates configuration problems, which never reached
// the store, from failures reported by the store itself.
func blobErrorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrMissingSASToken),
		errors.Is(err, services.ErrMissingAccountURL),
		errors.Is(err, services.ErrMissingS3Credentials),
		errors.Is(err, services.ErrUnknownBlobProvider):
		return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	}
}
