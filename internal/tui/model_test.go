package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govpal/internal/search"
)

type fakeSearch struct {
	last search.Query
	resp *search.Response
	err  error
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) (*search.Response, error) {
	f.last = q
	return f.resp, f.err
}

func typeAndEnter(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("  parking dept:transport permits ")
	assert.Equal(t, "parking permits", q.Text)
	assert.Equal(t, "transport", q.Dept)

	assert.Equal(t, search.Query{Text: "budget"}, ParseQuery("budget"))
}

func TestEnterRunsSearch(t *testing.T) {
	year := 2021
	svc := &fakeSearch{resp: &search.Response{
		Results: []search.Result{
			{ID: "a", Title: "a.pdf", Content: "First line. Budget was cut.", Score: 0.8, Metadata: search.Metadata{Year: &year, ChunkCount: 2}},
			{ID: "b", Title: "b.pdf", Content: "Other.", Score: 0.6},
		},
		Total: 2,
	}}
	m := New(svc, "2 documents", 5)

	m = typeAndEnter(t, m, "budget dept:finance")
	assert.Equal(t, search.Query{Text: "budget", Dept: "finance", Limit: 5}, svc.last)
	assert.Len(t, m.results, 2)
	assert.Contains(t, m.status, `2 documents for "budget" in finance`)
	assert.Contains(t, m.renderCurrentResult(), "a.pdf")
	assert.Contains(t, m.renderCurrentResult(), "year 2021")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)
}

func TestEnterShowsError(t *testing.T) {
	svc := &fakeSearch{err: errors.New("embedder offline")}
	m := typeAndEnter(t, New(svc, "", 10), "budget")
	assert.Equal(t, "Error: embedder offline", m.status)
	assert.Nil(t, m.results)
	assert.Equal(t, "No results yet.", m.renderCurrentResult())
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Roads were paved. The budget grew.", "budget")
	assert.Contains(t, out, "Roads were paved.")
	assert.Contains(t, out, "The budget grew.")
}
