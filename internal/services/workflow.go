package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/models"
	"alfredoptarigan/cv-analysis-tool/internal/repositories"
)

var (
	ErrNoFiles         = errors.New("no CV files uploaded")
	ErrBatchInProgress = errors.New("an analysis is already running for this session")
	ErrNotCompleted    = errors.New("no completed analysis in this session")
	ErrResultNotFound  = errors.New("analysis result not found")
	ErrFeedbackFailed  = errors.New("failed to submit feedback")
)

const (
	feedbackThanksPositive = "Thank you for your feedback!"
	feedbackThanksNegative = "Thank you for your feedback. We'll improve our analysis."

	// A session left in Running this long belongs to a request that died
	// before saving its outcome.
	staleRunAfter = 30 * time.Minute
)

// WorkflowService drives one session through Idle -> Running -> Completed
// and back to Idle on Clear.
type WorkflowService interface {
	Session(ctx context.Context, sessionID string) (*models.Session, error)
	Analyze(ctx context.Context, sessionID string, files []models.UploadedFile) (*AnalyzeOutcome, error)
	Clear(ctx context.Context, sessionID string) (*models.Session, error)
	SubmitFeedback(ctx context.Context, sessionID string, index int, positive bool) (*models.FeedbackResponse, error)
	Export(ctx context.Context, sessionID, format string) (*ExportFile, error)
}

// AnalyzeOutcome reports the session after Analyze. Rerun is false when
// the session already held completed results and nothing was submitted.
type AnalyzeOutcome struct {
	Session *models.Session
	Errors  []models.FileError
	Rerun   bool
}

type workflowService struct {
	sessions repositories.SessionRepository
	runner   BatchRunner
	client   AnalysisClient
	logger   *zap.Logger
}

func NewWorkflowService(
	sessions repositories.SessionRepository,
	runner BatchRunner,
	client AnalysisClient,
	logger *zap.Logger,
) WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &workflowService{
		sessions: sessions,
		runner:   runner,
		client:   client,
		logger:   logger,
	}
}

// Session implements WorkflowService. Unknown ids start a fresh Idle
// session; it is not stored until something changes.
func (w *workflowService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := w.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.NewSession(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.State == models.SessionRunning && time.Since(session.UpdatedAt) > staleRunAfter {
		w.logger.Warn("resetting stale running session", zap.String("session_id", sessionID))
		session.Reset()
	}

	return session, nil
}

// Analyze implements WorkflowService.
func (w *workflowService) Analyze(ctx context.Context, sessionID string, files []models.UploadedFile) (*AnalyzeOutcome, error) {
	session, err := w.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case models.SessionRunning:
		return nil, ErrBatchInProgress
	case models.SessionCompleted:
		return &AnalyzeOutcome{Session: session, Errors: []models.FileError{}}, nil
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	session.MarkRunning()
	if err := w.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	w.logger.Info("analysis started", zap.String("session_id", sessionID), zap.Int("files", len(files)))
	outcome := w.runner.Run(ctx, files)

	session.Complete(outcome.Results, outcome.ThreadIDs)
	if err := w.sessions.Save(ctx, session); err != nil {
		w.abandonRun(ctx, session)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	w.logger.Info("analysis completed",
		zap.String("session_id", sessionID),
		zap.Int("results", len(outcome.Results)),
		zap.Int("errors", len(outcome.Errors)),
	)

	return &AnalyzeOutcome{
		Session: session,
		Errors:  outcome.Errors,
		Rerun:   true,
	}, nil
}

// Clear implements WorkflowService.
func (w *workflowService) Clear(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := w.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.SessionRunning {
		return nil, ErrBatchInProgress
	}

	session.Reset()
	if err := w.sessions.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}

	w.logger.Info("results cleared", zap.String("session_id", sessionID))
	return session, nil
}

// SubmitFeedback implements WorkflowService. It never changes the session.
func (w *workflowService) SubmitFeedback(ctx context.Context, sessionID string, index int, positive bool) (*models.FeedbackResponse, error) {
	result, err := w.completedResult(ctx, sessionID, index)
	if err != nil {
		return nil, err
	}

	if _, err := w.client.SubmitFeedback(ctx, result.MessageID, result.ThreadID, positive); err != nil {
		w.logger.Error("feedback failed",
			zap.String("session_id", sessionID),
			zap.String("message_id", result.MessageID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrFeedbackFailed, err)
	}

	message := feedbackThanksNegative
	if positive {
		message = feedbackThanksPositive
	}

	return &models.FeedbackResponse{
		CVName:    result.CVName,
		MessageID: result.MessageID,
		Positive:  positive,
		Message:   message,
	}, nil
}

// Export implements WorkflowService.
func (w *workflowService) Export(ctx context.Context, sessionID, format string) (*ExportFile, error) {
	session, err := w.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.AnalysisCompleted {
		return nil, ErrNotCompleted
	}
	return ExportResults(session.Results, format)
}

// abandonRun drops a session whose outcome could not be stored so it does
// not stay Running. Failures here are only logged.
func (w *workflowService) abandonRun(ctx context.Context, session *models.Session) {
	session.Reset()
	if err := w.sessions.Delete(ctx, session.ID); err != nil {
		w.logger.Error("failed to release running session",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func (w *workflowService) completedResult(ctx context.Context, sessionID string, index int) (*models.AnalysisResult, error) {
	session, err := w.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.AnalysisCompleted {
		return nil, ErrNotCompleted
	}
	if index < 0 || index >= len(session.Results) {
		return nil, fmt.Errorf("%w: index %d", ErrResultNotFound, index)
	}
	result := session.Results[index]
	return &result, nil
}
