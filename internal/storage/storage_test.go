package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	s, err := NewFS(t.TempDir(), "/files/")
	require.NoError(t, err)

	h, err := s.Upload(context.Background(), "exports/ws 1/geo-1/plan.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "exports/ws 1/geo-1/plan.png", h.Path)
	assert.Equal(t, int64(3), h.Size)
	assert.Equal(t, "/files/exports/ws%201/geo-1/plan.png", s.DownloadURL(h))

	f, err := s.Open(h)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = s.Upload(context.Background(), "exports/ws 1/geo-1/plan.png", []byte("other"))
	assert.Error(t, err, "artifacts are immutable")
}

func TestFS_RejectsTraversal(t *testing.T) {
	s, err := NewFS(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "../escape.png", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = s.Upload(context.Background(), "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}
