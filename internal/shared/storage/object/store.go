package object

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"skillgap-backend/internal/shared/util"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores an uploaded file under the owner's namespace as
	// "<resumeID>_<fileName>" and sniffs its content type.
	Save(ctx context.Context, owner string, resumeID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey stores data at an exact key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// UploadKey returns the storage key of an uploaded resume.
func UploadKey(owner, resumeID, fileName string) (string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(owner), fmt.Sprintf("%s_%s", resumeID, sanitizedName)), nil
}

// ResultKey returns the storage key of the archived analysis result.
func ResultKey(owner, resumeID string) string {
	return path.Join(util.HashUserKey(owner), resumeID+"_extraction.json")
}

// Sniff reads up to 512 bytes from r and returns them with the detected
// content type. The caller must write the sniffed bytes before the rest of r.
func Sniff(r io.Reader) ([]byte, string, error) {
	var buf [512]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", fmt.Errorf("read sniff: %w", err)
	}
	return buf[:n], http.DetectContentType(buf[:n]), nil
}
