package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govpal/internal/apperr"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

func TestExt(t *testing.T) {
	tests := map[string]string{
		"report.PDF":        "pdf",
		"a.b.docx":          "docx",
		"notes.txt":         "txt",
		"README":            "readme",
		"/tmp/upload/x.Doc": "doc",
		"trailing.":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Ext(in), in)
	}
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	r := NewRouter().
		Handle(fakeExtractor{text: "pdf text"}, "pdf").
		Handle(fakeExtractor{err: errors.New("zip: not a valid zip file")}, "DOCX", "doc")

	assert.True(t, r.Supports("x.pdf"))
	assert.True(t, r.Supports("x.docx"))
	assert.False(t, r.Supports("notes.txt"))

	text, err := r.Extract(ctx, "a.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)

	_, err = r.Extract(ctx, "a.doc", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsExtraction(err))

	_, err = r.Extract(ctx, "notes.txt", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "Unsupported file type: txt")
}
