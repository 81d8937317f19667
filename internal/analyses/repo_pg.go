package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"skillgap-backend/internal/engine"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, user_id, role_id, file_name, file_key, mime_type, status,
       catalog_version, model_version, score, no_good_match, result,
       error_code, error_message, error_retryable, created_at, updated_at, started_at, completed_at`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, user_id, role_id, file_name, file_key, mime_type, status, result, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	resultPayload, err := marshalJSONB(analysis.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.RoleID,
		analysis.FileName,
		analysis.FileKey,
		analysis.MimeType,
		analysis.Status,
		resultPayload,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1
LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// UpdateStatus applies a status transition. Columns whose update value is
// unset keep their stored value.
func (r *PGRepo) UpdateStatus(ctx context.Context, analysisID string, update StatusUpdate) error {
	const query = `
UPDATE analyses SET
	status = $2,
	result = COALESCE($3, result),
	catalog_version = COALESCE($4, catalog_version),
	model_version = COALESCE($5, model_version),
	score = COALESCE($6, score),
	no_good_match = COALESCE($7, no_good_match),
	error_code = COALESCE($8, error_code),
	error_message = COALESCE($9, error_message),
	error_retryable = COALESCE($10, error_retryable),
	started_at = COALESCE($11, started_at),
	completed_at = COALESCE($12, completed_at),
	updated_at = now()
WHERE id = $1`

	var (
		resultPayload  any
		catalogVersion any
		modelVersion   any
		score          any
		noGoodMatch    any
		errorCode      any
		errorMessage   any
		errorRetryable any
		startedAt      any
		completedAt    any
	)
	if update.Result != nil {
		payload, err := marshalJSONB(update.Result)
		if err != nil {
			return err
		}
		resultPayload = payload
		catalogVersion = update.Result.CatalogVersion
		modelVersion = update.Result.ModelVersion
		noGoodMatch = update.Result.NoGoodMatch
		if update.Result.SelectedRole != nil {
			score = update.Result.SelectedRole.Score
		}
	}
	if update.ErrorCode != "" {
		errorCode = update.ErrorCode
		errorMessage = update.ErrorMessage
		errorRetryable = update.ErrorRetryable
	}
	if update.StartedAt != nil {
		startedAt = *update.StartedAt
	}
	if update.CompletedAt != nil {
		completedAt = *update.CompletedAt
	}

	res, err := r.DB.ExecContext(ctx, query,
		analysisID,
		update.Status,
		resultPayload,
		catalogVersion,
		modelVersion,
		score,
		noGoodMatch,
		errorCode,
		errorMessage,
		errorRetryable,
		startedAt,
		completedAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns analyses for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var score sql.NullInt64
	var noGoodMatch sql.NullBool
	var result sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var errorRetryable sql.NullBool
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.RoleID,
		&a.FileName,
		&a.FileKey,
		&a.MimeType,
		&a.Status,
		&a.CatalogVersion,
		&a.ModelVersion,
		&score,
		&noGoodMatch,
		&result,
		&errorCode,
		&errorMessage,
		&errorRetryable,
		&a.CreatedAt,
		&a.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Analysis{}, err
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if noGoodMatch.Valid {
		v := noGoodMatch.Bool
		a.NoGoodMatch = &v
	}
	if result.Valid && result.String != "" {
		var res engine.Result
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return Analysis{}, fmt.Errorf("decode result of analysis %s: %w", a.ID, err)
		}
		a.Result = &res
	}
	if errorCode.Valid {
		a.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = &errorMessage.String
	}
	if errorRetryable.Valid {
		a.ErrorRetryable = errorRetryable.Bool
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func marshalJSONB(value *engine.Result) (any, error) {
	if value == nil {
		return nil, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return payload, nil
}

var _ Repo = (*PGRepo)(nil)
