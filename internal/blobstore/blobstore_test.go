package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govpal/internal/apperr"
)

func TestSave(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(filepath.Join(root, "storage"))
	require.NoError(t, err)

	path, err := d.Save(context.Background(), BlobName("abc123", "policy.pdf"), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "storage", "abc123_policy.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestSave_FlattensTraversal(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	path, err := d.Save(context.Background(), "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, d.Root(), filepath.Dir(path))
	assert.Equal(t, "_.._etc_passwd", filepath.Base(path))
}

func TestSave_EmptyName(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)
	_, err = d.Save(context.Background(), "..", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestNewDir_RequiresRoot(t *testing.T) {
	_, err := NewDir("")
	assert.Error(t, err)
}
