package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/shared/storage/object"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "guest:abc", "r1", "cv.txt", strings.NewReader("Skills: Go, SQL"))
	require.NoError(t, err)
	assert.Equal(t, int64(15), size)
	assert.Contains(t, mime, "text/plain")
	want, err := object.UploadKey("guest:abc", "r1", "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, want, key)
	assert.True(t, strings.HasSuffix(key, "/r1_cv.txt"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Skills: Go, SQL", string(body))
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.SaveWithKey(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x"))
	assert.Error(t, err)
	_, err = store.Open(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	_, _, _, err = store.Save(context.Background(), "u", "r", "../cv.pdf", strings.NewReader("x"))
	assert.Error(t, err)
}
