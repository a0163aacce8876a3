// Package extract turns uploaded PDF and DOCX bytes into plain text by
// dispatching on the file extension.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"govpal/internal/apperr"
	"govpal/internal/domain"
)

// Router dispatches to a per-extension extractor.
type Router struct {
	byExt map[string]domain.Extractor
}

var _ domain.Extractor = (*Router)(nil)

// NewRouter creates an empty router. Register extractors with Handle.
func NewRouter() *Router {
	return &Router{byExt: make(map[string]domain.Extractor)}
}

// Handle registers ex for each extension (without dot, case-insensitive).
func (r *Router) Handle(ex domain.Extractor, exts ...string) *Router {
	for _, e := range exts {
		r.byExt[strings.ToLower(e)] = ex
	}
	return r
}

// Supports reports whether filename's extension has a registered extractor.
func (r *Router) Supports(filename string) bool {
	_, ok := r.byExt[Ext(filename)]
	return ok
}

// Extract runs the extractor registered for filename's extension.
func (r *Router) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	ext := Ext(filename)
	ex, ok := r.byExt[ext]
	if !ok {
		return "", apperr.New(apperr.KindValidation, "Unsupported file type: "+ext, apperr.Field("filename", filename))
	}
	text, err := ex.Extract(ctx, filename, content)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(err, apperr.KindExtraction, "extracting text", apperr.Field("filename", filename))
		}
		return "", err
	}
	return text, nil
}

// Ext returns the lower-cased text after the last dot of the base name, or
// the whole lower-cased base name when there is no dot.
func Ext(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return base
}
