package pdf

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name, m.args = name, args
	return m.output, m.err
}

func TestExtract_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Leave Policy\n\nEffective 2022.\f")}
	e := NewWithRunner("", runner)

	text, err := e.Extract(context.Background(), "leave.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Contains(t, text, "Effective 2022.")
	assert.Equal(t, "pdftotext", runner.name)
	require.Len(t, runner.args, 4)
	assert.Equal(t, "-", runner.args[3])
}

func TestExtract_RunnerError(t *testing.T) {
	e := NewWithRunner("pdftotext", &mockRunner{err: errors.New("exit status 1")})
	_, err := e.Extract(context.Background(), "broken.pdf", []byte("nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestExtract_ToolMissing(t *testing.T) {
	e := NewWithRunner("pdftotext", &mockRunner{err: &exec.Error{Name: "pdftotext", Err: exec.ErrNotFound}})
	_, err := e.Extract(context.Background(), "a.pdf", nil)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestCheckAvailable_UnknownTool(t *testing.T) {
	e := New("definitely-not-a-real-pdf-tool")
	assert.ErrorIs(t, e.CheckAvailable(), ErrPDFToolNotFound)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}
