package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

// BatchRunner processes one batch of uploaded CVs: extract, submit,
// collect. A failing file is reported and skipped; it never stops the
// batch.
type BatchRunner interface {
	Run(ctx context.Context, files []models.UploadedFile) *models.BatchOutcome
}

type batchRunner struct {
	extractor   TextExtractor
	client      AnalysisClient
	delay       time.Duration
	concurrency int
	logger      *zap.Logger
	wait        func(ctx context.Context, d time.Duration) error
}

type fileOutcome struct {
	result *models.AnalysisResult
	err    *models.FileError
}

func NewBatchRunner(
	extractor TextExtractor,
	client AnalysisClient,
	delay time.Duration,
	concurrency int,
	logger *zap.Logger,
) BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &batchRunner{
		extractor:   extractor,
		client:      client,
		delay:       delay,
		concurrency: concurrency,
		logger:      logger,
		wait:        waitFor,
	}
}

// Run implements BatchRunner. Results keep upload order regardless of
// concurrency.
func (b *batchRunner) Run(ctx context.Context, files []models.UploadedFile) *models.BatchOutcome {
	names := uniqueCVNames(files)
	outcomes := make([]fileOutcome, len(files))

	b.logger.Info("starting batch",
		zap.Int("files", len(files)),
		zap.Int("concurrency", b.concurrency),
		zap.Duration("delay", b.delay),
	)

	if b.concurrency == 1 {
		for i, file := range files {
			if i > 0 {
				if err := b.wait(ctx, b.delay); err != nil {
					b.logger.Warn("pause between files interrupted", zap.Error(err))
				}
			}
			outcomes[i] = b.processFile(ctx, i, names[i], file)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(b.concurrency)
		for i, file := range files {
			if i > 0 {
				if err := b.wait(ctx, b.delay); err != nil {
					b.logger.Warn("pause between files interrupted", zap.Error(err))
				}
			}
			i, file := i, file
			g.Go(func() error {
				outcomes[i] = b.processFile(ctx, i, names[i], file)
				return nil
			})
		}
		_ = g.Wait()
	}

	batch := &models.BatchOutcome{
		Results:   []models.AnalysisResult{},
		ThreadIDs: []string{},
		Errors:    []models.FileError{},
	}
	for _, out := range outcomes {
		if out.err != nil {
			batch.Errors = append(batch.Errors, *out.err)
			continue
		}
		batch.Results = append(batch.Results, *out.result)
		batch.ThreadIDs = append(batch.ThreadIDs, out.result.ThreadID)
	}

	b.logger.Info("batch finished",
		zap.Int("succeeded", len(batch.Results)),
		zap.Int("failed", len(batch.Errors)),
	)
	return batch
}

func (b *batchRunner) processFile(ctx context.Context, index int, cvName string, file models.UploadedFile) fileOutcome {
	identifier := fmt.Sprintf("cv_%d", index+1)
	cvText := b.extractor.Extract(file)

	b.logger.Debug("submitting CV",
		zap.String("cv_name", cvName),
		zap.String("identifier", identifier),
		zap.Int("text_length", len(cvText)),
	)

	resp, err := b.client.CreateChat(ctx, cvText, "", identifier)
	if err != nil {
		b.logger.Error("analysis failed", zap.String("cv_name", cvName), zap.Error(err))
		return fileOutcome{err: &models.FileError{
			CVName:  cvName,
			Message: fmt.Sprintf("Error analyzing %s: %v", cvName, err),
		}}
	}

	return fileOutcome{result: &models.AnalysisResult{
		CVName:    cvName,
		Analysis:  resp.AnalysisText(),
		ThreadID:  resp.ThreadID,
		MessageID: resp.MessageID,
	}}
}

// uniqueCVNames derives display names from file names, suffixing repeats
// with " (n)" so every result in a batch is distinct.
func uniqueCVNames(files []models.UploadedFile) []string {
	names := make([]string, len(files))
	taken := make(map[string]bool, len(files))
	for i, f := range files {
		name := f.Name
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s (%d)", f.Name, n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}

func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
