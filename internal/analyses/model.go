package analyses

import (
	"time"

	"skillgap-backend/internal/engine"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis is a stored skill-gap analysis job. Text submissions carry no file.
type Analysis struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	RoleID         string         `json:"roleId,omitempty"`
	FileName       string         `json:"fileName,omitempty"`
	FileKey        string         `json:"-"`
	MimeType       string         `json:"mimeType,omitempty"`
	Status         string         `json:"status"`
	CatalogVersion string         `json:"catalogVersion,omitempty"`
	ModelVersion   string         `json:"modelVersion,omitempty"`
	Score          *int           `json:"score,omitempty"`
	NoGoodMatch    *bool          `json:"noGoodMatch,omitempty"`
	Result         *engine.Result `json:"result,omitempty"`
	ErrorCode      string         `json:"errorCode,omitempty"`
	ErrorMessage   *string        `json:"errorMessage,omitempty"`
	ErrorRetryable bool           `json:"errorRetryable,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
}

// StatusUpdate carries the fields written on a status transition. Nil and
// empty fields leave the stored value untouched.
type StatusUpdate struct {
	Status         string
	Result         *engine.Result
	ErrorCode      string
	ErrorMessage   string
	ErrorRetryable bool
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// apply folds the update into a, mirroring the SQL update.
func (u StatusUpdate) apply(a Analysis) Analysis {
	a.Status = u.Status
	if u.Result != nil {
		a.Result = u.Result
		a.CatalogVersion = u.Result.CatalogVersion
		a.ModelVersion = u.Result.ModelVersion
		noGoodMatch := u.Result.NoGoodMatch
		a.NoGoodMatch = &noGoodMatch
		if u.Result.SelectedRole != nil {
			score := u.Result.SelectedRole.Score
			a.Score = &score
		}
	}
	if u.ErrorCode != "" {
		a.ErrorCode = u.ErrorCode
		msg := u.ErrorMessage
		a.ErrorMessage = &msg
		a.ErrorRetryable = u.ErrorRetryable
	}
	if u.StartedAt != nil {
		a.StartedAt = u.StartedAt
	}
	if u.CompletedAt != nil {
		a.CompletedAt = u.CompletedAt
	}
	a.UpdatedAt = time.Now().UTC()
	return a
}
