package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/extract"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/shared/storage/object"
	"skillgap-backend/internal/shared/telemetry"
)

const defaultMaxUploadBytes = 10 << 20

// Analyzer runs the skill-gap engine.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Upload is a resume file submitted by a caller.
type Upload struct {
	FileName string
	Body     io.Reader
}

// Service contains business logic for analyses.
type Service struct {
	Repo           Repo
	Engine         Analyzer
	Store          object.ObjectStore
	Queue          queue.Client
	MaxUploadBytes int64
	Now            func() time.Time
}

// AnalyzeText analyses pasted resume text synchronously.
func (s *Service) AnalyzeText(ctx context.Context, userID, roleID, text string) (Analysis, error) {
	if userID == "" {
		return Analysis{}, errors.New("userID is required")
	}
	analysis := s.newAnalysis(userID, roleID)
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}
	return s.execute(ctx, analysis, func(context.Context) (string, error) { return text, nil })
}

// AnalyzeUpload stores an uploaded resume, extracts its text and analyses it
// synchronously.
func (s *Service) AnalyzeUpload(ctx context.Context, userID, roleID string, upload Upload) (Analysis, error) {
	analysis, data, err := s.store(ctx, userID, roleID, upload)
	if err != nil {
		return Analysis{}, err
	}
	return s.execute(ctx, analysis, func(ctx context.Context) (string, error) {
		return extract.ExtractTextFromBytes(ctx, data, analysis.MimeType, analysis.FileName)
	})
}

// Enqueue stores an uploaded resume and hands the analysis to the job queue.
func (s *Service) Enqueue(ctx context.Context, userID, roleID string, upload Upload) (Analysis, error) {
	if s.Queue == nil {
		return Analysis{}, ErrJobQueueNotConfigured
	}
	analysis, _, err := s.store(ctx, userID, roleID, upload)
	if err != nil {
		return Analysis{}, err
	}
	msg := queue.Message{
		AnalysisID: analysis.ID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: s.now().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		s.fail(ctx, analysis, fmt.Errorf("%w: enqueue: %v", errStorage, err), nil)
		return Analysis{}, fmt.Errorf("enqueue analysis %s: %w", analysis.ID, err)
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"user_id":     userID,
		"analysis_id": analysis.ID,
		"status":      StatusQueued,
	})
	return analysis, nil
}

// ProcessAnalysis runs a queued analysis. Completed analyses are left as is
// so redelivered jobs are harmless.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup id=%s: %w", analysisID, err)
	}
	if analysis.Status == StatusCompleted {
		return nil
	}
	if analysis.FileKey == "" {
		err := errors.New("analysis has no stored file")
		s.fail(ctx, analysis, err, nil)
		return err
	}
	_, err = s.execute(ctx, analysis, func(ctx context.Context) (string, error) {
		return s.loadText(ctx, analysis)
	})
	return err
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, errors.New("analysisID is required")
	}
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if analysis.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// List returns analyses for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) newAnalysis(userID, roleID string) Analysis {
	now := s.now()
	return Analysis{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoleID:    strings.TrimSpace(roleID),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// store archives the upload and records a queued analysis for it.
func (s *Service) store(ctx context.Context, userID, roleID string, upload Upload) (Analysis, []byte, error) {
	if userID == "" {
		return Analysis{}, nil, errors.New("userID is required")
	}
	if upload.Body == nil || strings.TrimSpace(upload.FileName) == "" {
		return Analysis{}, nil, ErrEmptyInput
	}
	if s.Store == nil {
		return Analysis{}, nil, fmt.Errorf("%w: object store not configured", errStorage)
	}

	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(upload.Body, limit+1))
	if err != nil {
		return Analysis{}, nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return Analysis{}, nil, ErrFileTooLarge
	}

	analysis := s.newAnalysis(userID, roleID)
	key, _, mimeType, err := s.Store.Save(ctx, userID, analysis.ID, upload.FileName, bytes.NewReader(data))
	if err != nil {
		return Analysis{}, nil, fmt.Errorf("%w: save upload: %v", errStorage, err)
	}
	analysis.FileName = upload.FileName
	analysis.FileKey = key
	analysis.MimeType = extract.DetectMimeType(mimeType, upload.FileName, data)

	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, nil, err
	}
	return analysis, data, nil
}

// execute drives one analysis from processing to a terminal status.
func (s *Service) execute(ctx context.Context, analysis Analysis, text func(context.Context) (string, error)) (Analysis, error) {
	startedAt := s.now()
	if err := s.Repo.UpdateStatus(ctx, analysis.ID, StatusUpdate{Status: StatusProcessing, StartedAt: &startedAt}); err != nil {
		err = fmt.Errorf("%w: set processing: %v", errStorage, err)
		s.fail(ctx, analysis, err, &startedAt)
		return Analysis{}, err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysis.ID,
		"status":            StatusProcessing,
		"status_transition": analysis.Status + "->processing",
	})

	resumeText, err := text(ctx)
	if err != nil {
		err = fmt.Errorf("analysis %s file %q: %w", analysis.ID, analysis.FileName, err)
		s.fail(ctx, analysis, err, &startedAt)
		return Analysis{}, err
	}

	result, err := s.Engine.Analyze(ctx, engine.Request{Text: resumeText, RoleID: analysis.RoleID})
	if err != nil {
		s.fail(ctx, analysis, err, &startedAt)
		return Analysis{}, err
	}
	result.ResumeID = analysis.ID
	s.archive(ctx, analysis, result)

	completedAt := s.now()
	update := StatusUpdate{Status: StatusCompleted, Result: result, CompletedAt: &completedAt}
	if err := s.Repo.UpdateStatus(ctx, analysis.ID, update); err != nil {
		err = fmt.Errorf("%w: set result: %v", errStorage, err)
		s.fail(ctx, analysis, err, &startedAt)
		return Analysis{}, err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysis.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
		"no_good_match":     result.NoGoodMatch,
	})
	analysis.StartedAt = &startedAt
	return update.apply(analysis), nil
}

// archive writes the result JSON next to the uploaded file. Archiving is
// best effort and never fails the analysis.
func (s *Service) archive(ctx context.Context, analysis Analysis, result *engine.Result) {
	if s.Store == nil || analysis.FileKey == "" {
		return
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err == nil {
		_, err = s.Store.SaveWithKey(ctx, object.ResultKey(analysis.UserID, analysis.ID), "application/json", bytes.NewReader(payload))
	}
	if err != nil {
		telemetry.Warn("analysis.archive_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
	}
}

func (s *Service) fail(ctx context.Context, analysis Analysis, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	completedAt := s.now()
	update := StatusUpdate{
		Status:         StatusFailed,
		ErrorCode:      code,
		ErrorMessage:   sanitizeError(err),
		ErrorRetryable: retryable,
		CompletedAt:    &completedAt,
	}
	// The caller's context may already be done; the failure must still be recorded.
	if updateErr := s.Repo.UpdateStatus(context.WithoutCancel(ctx), analysis.ID, update); updateErr != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"analysis_id": analysis.ID,
			"error":       updateErr.Error(),
			"cause":       err.Error(),
		})
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysis.ID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"retryable":         retryable,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func (s *Service) loadText(ctx context.Context, analysis Analysis) (string, error) {
	body, err := s.Store.Open(ctx, analysis.FileKey)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", errStorage, analysis.FileKey, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", errStorage, analysis.FileKey, err)
	}
	return extract.ExtractTextFromBytes(ctx, data, analysis.MimeType, analysis.FileName)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}
