// Package apperr defines the closed set of error kinds surfaced by ingestion
// and search, carried on samber/oops errors so callers can branch on kind
// without inspecting messages.
package apperr

import (
	"net/http"

	"github.com/samber/oops"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation covers missing filenames, unsupported extensions and malformed input.
	KindValidation Kind = "ingest.validation"
	// KindExtraction covers unreadable or empty source files.
	KindExtraction Kind = "ingest.extraction"
	// KindPersistence covers store and blob write failures. Store integrity is at risk.
	KindPersistence Kind = "store.persistence"
	// KindEmbedding covers failed requests to the embedding collaborator.
	KindEmbedding Kind = "embedding.request"
)

// Attr is a structured key/value attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates an Attr.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func New(kind Kind, msg string, fields ...Attr) error {
	return oops.Code(kind).With(flatten(fields)...).New(msg)
}

func Errorf(kind Kind, format string, args ...any) error {
	return oops.Code(kind).Errorf(format, args...)
}

func Wrap(err error, kind Kind, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(kind).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(kind).Wrapf(err, format, args...)
}

// KindOf returns the kind carried by err, or "" when err is nil or untyped.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Kind:
		return code
	case string:
		return Kind(code)
	default:
		return ""
	}
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsValidation(err error) bool  { return Is(err, KindValidation) }
func IsExtraction(err error) bool  { return Is(err, KindExtraction) }
func IsPersistence(err error) bool { return Is(err, KindPersistence) }
func IsEmbedding(err error) bool   { return Is(err, KindEmbedding) }

// HTTPStatus maps an error to the status code the HTTP layer answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindExtraction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		pairs = append(pairs, f.Key, f.Value)
	}
	return pairs
}
