// Package pdf extracts text from PDF files using the poppler pdftotext tool.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrPDFToolNotFound is returned when pdftotext is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; install poppler-utils")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor handles PDF documents.
type Extractor struct {
	tool   string
	runner CommandRunner
}

// New creates a PDF extractor that shells out to tool (default "pdftotext").
func New(tool string) *Extractor {
	return NewWithRunner(tool, execRunner{})
}

// NewWithRunner creates a PDF extractor with an injected command runner.
func NewWithRunner(tool string, runner CommandRunner) *Extractor {
	if tool == "" {
		tool = "pdftotext"
	}
	return &Extractor{tool: tool, runner: runner}
}

// CheckAvailable reports whether the configured tool can be found.
func (e *Extractor) CheckAvailable() error {
	if _, err := exec.LookPath(e.tool); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to get pdftotext.
func InstallInstructions() string {
	return "PDF ingestion needs pdftotext from poppler:\n" +
		"  macOS:  brew install poppler\n" +
		"  Debian: apt install poppler-utils"
}

// Extract writes content to a temp file and returns pdftotext's output.
// Pages are separated by form feeds, which are kept as whitespace.
func (e *Extractor) Extract(ctx context.Context, _ string, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "govpal-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	out, err := e.runner.Run(ctx, e.tool, "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", ErrPDFToolNotFound
		}
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}
