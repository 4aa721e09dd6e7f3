package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

type JobCriteriaService interface {
	Preview(file models.UploadedFile) models.JobCriteriaPreview
	Update(ctx context.Context, file models.UploadedFile) (*models.JobCriteria, error)
	Current(ctx context.Context) (*models.JobCriteria, error)
}

type jobCriteriaService struct {
	extractor TextExtractor
	newStore  BlobStoreFactory
	logger    *zap.Logger
}

func NewJobCriteriaService(extractor TextExtractor, newStore BlobStoreFactory, logger *zap.Logger) JobCriteriaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobCriteriaService{
		extractor: extractor,
		newStore:  newStore,
		logger:    logger,
	}
}

// ConvertTextToJobCriteria wraps extracted text as-is. No field parsing
// is attempted; the remote service reads the free text.
func ConvertTextToJobCriteria(text string) models.JobCriteria {
	return models.JobCriteria{JobCriteriaText: text}
}

// Preview implements JobCriteriaService.
func (s *jobCriteriaService) Preview(file models.UploadedFile) models.JobCriteriaPreview {
	text := s.extractor.Extract(file)
	return models.JobCriteriaPreview{
		FileName:      file.Name,
		ExtractedText: text,
		JobCriteria:   ConvertTextToJobCriteria(text),
	}
}

// Update implements JobCriteriaService. It overwrites job_criteria.json.
func (s *jobCriteriaService) Update(ctx context.Context, file models.UploadedFile) (*models.JobCriteria, error) {
	criteria := ConvertTextToJobCriteria(s.extractor.Extract(file))

	store, err := s.newStore(ctx)
	if err != nil {
		s.logger.Error("blob storage configuration error", zap.Error(err))
		return nil, fmt.Errorf("blob storage configuration error: %w", err)
	}

	payload, err := json.MarshalIndent(criteria, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode job criteria: %w", err)
	}

	if err := store.Upload(ctx, models.JobCriteriaBlobName, payload, DefaultBlobContentType); err != nil {
		s.logger.Error("job criteria upload failed", zap.String("file", file.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("job criteria updated",
		zap.String("file", file.Name),
		zap.Int("text_length", len(criteria.JobCriteriaText)),
	)
	return &criteria, nil
}

// Current implements JobCriteriaService.
func (s *jobCriteriaService) Current(ctx context.Context) (*models.JobCriteria, error) {
	store, err := s.newStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob storage configuration error: %w", err)
	}

	raw, err := store.Download(ctx, models.JobCriteriaBlobName)
	if err != nil {
		return nil, err
	}

	var criteria models.JobCriteria
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", models.JobCriteriaBlobName, err)
	}

	return &criteria, nil
}
