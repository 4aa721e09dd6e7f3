package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

var (
	cvExtensions          = []string{".pdf", ".docx", ".txt"}
	jobCriteriaExtensions = []string{".pdf", ".docx"}
)

// readUploads loads every file posted under field. A request that is not
// multipart yields no files.
func readUploads(c *fiber.Ctx, field string, allowed []string, maxFileSize int64) ([]models.UploadedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}

	headers := form.File[field]
	files := make([]models.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header, allowed, maxFileSize)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}

func readUpload(header *multipart.FileHeader, allowed []string, maxFileSize int64) (models.UploadedFile, error) {
	if header.Size > maxFileSize {
		return models.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%s is too large. Max size: %d bytes", header.Filename, maxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(allowed, ext) {
		return models.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("invalid file extension for %s: %q (allowed: %s)", header.Filename, ext, strings.Join(allowed, ", ")))
	}

	src, err := header.Open()
	if err != nil {
		return models.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("failed to open uploaded file %s", header.Filename))
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("failed to read uploaded file %s", header.Filename))
	}

	return models.NewUploadedFile(filepath.Base(header.Filename), content), nil
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// uploadErrorJSON renders a readUploads failure.
func uploadErrorJSON(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return errorJSON(c, e.Code, e.Message)
	}
	return errorJSON(c, fiber.StatusBadRequest, err.Error())
}
