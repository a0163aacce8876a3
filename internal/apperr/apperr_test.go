package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: ""},
		{name: "new", err: New(KindValidation, "bad input"), want: KindValidation},
		{name: "errorf", err: Errorf(KindExtraction, "read %s", "a.pdf"), want: KindExtraction},
		{name: "wrap", err: Wrap(errors.New("disk full"), KindPersistence, "writing chunks"), want: KindPersistence},
		{name: "std wrapped", err: fmt.Errorf("outer: %w", Wrapf(errors.New("x"), KindEmbedding, "embed")), want: KindEmbedding},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindPersistence, "noop"))
	assert.NoError(t, Wrapf(nil, KindPersistence, "noop %d", 1))
}

func TestPredicates(t *testing.T) {
	err := Wrap(errors.New("eof"), KindPersistence, "save", Field("path", "/tmp/x"))
	assert.True(t, IsPersistence(err))
	assert.False(t, IsValidation(err))
	assert.False(t, IsExtraction(err))
	assert.False(t, IsEmbedding(err))
	assert.Contains(t, err.Error(), "eof")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(KindValidation, "v")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(New(KindExtraction, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(New(KindPersistence, "p")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(New(KindEmbedding, "e")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
