package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"govpal/internal/apperr"
	"govpal/internal/search"
)

const (
	answerPlaceholder = "Based on the available documents, here is a comprehensive answer to your question. " +
		"This is a placeholder response that demonstrates the API structure."
	noContextProvided = "No additional context provided"
)

var answerSources = []string{
	"doc_123456 (sample.pdf, page 1)",
	"doc_789012 (policy.pdf, page 3)",
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.OK = true
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Welcome message",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*rootOutput, error) {
		out := &rootOutput{}
		out.Body.Message = "Welcome to GovPal API"
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/search",
		Summary:     "Semantic search over ingested documents",
		Tags:        []string{"search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "answer",
		Method:      http.MethodPost,
		Path:        "/answer",
		Summary:     "Answer a question (placeholder)",
		Tags:        []string{"search"},
	}, s.handleAnswer)
}

type healthOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

type rootOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// searchInput keeps limit as a string so a malformed value answers 400
// instead of a schema validation error.
type searchInput struct {
	Q     string `query:"q" doc:"Search query"`
	Dept  string `query:"dept" doc:"Filter by department"`
	Role  string `query:"role" doc:"Caller role, currently unused"`
	Limit string `query:"limit" doc:"Maximum number of documents (default 10)"`
}

type searchOutput struct {
	Body *search.Response
}

func (s *Server) handleSearch(ctx context.Context, in *searchInput) (*searchOutput, error) {
	q := strings.TrimSpace(in.Q)
	if q == "" {
		return nil, huma.Error400BadRequest("Query parameter q is required")
	}
	limit := 0
	if in.Limit != "" {
		n, err := strconv.Atoi(in.Limit)
		if err != nil || n < 1 {
			return nil, huma.Error400BadRequest("limit must be a positive integer")
		}
		limit = n
	}

	resp, err := s.svc.Search.Search(ctx, search.Query{
		Text:  q,
		Dept:  strings.TrimSpace(in.Dept),
		Role:  in.Role,
		Limit: limit,
	})
	if err != nil {
		s.logger.Error("search failed", "error", err, "kind", apperr.KindOf(err))
		return nil, huma.NewError(apperr.HTTPStatus(err), "Search error: "+err.Error())
	}
	return &searchOutput{Body: resp}, nil
}

type answerInput struct {
	Body struct {
		Question string `json:"question,omitempty" doc:"Question to answer"`
		Context  string `json:"context,omitempty" doc:"Optional extra context"`
	}
}

type answerBody struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources"`
	Confidence  float64  `json:"confidence"`
	ContextUsed string   `json:"context_used"`
}

type answerOutput struct {
	Body answerBody
}

// handleAnswer returns a fixed placeholder; answer generation is not wired.
func (s *Server) handleAnswer(_ context.Context, in *answerInput) (*answerOutput, error) {
	if strings.TrimSpace(in.Body.Question) == "" {
		return nil, huma.Error400BadRequest("question is required")
	}
	used := in.Body.Context
	if used == "" {
		used = noContextProvided
	}
	return &answerOutput{Body: answerBody{
		Question:    in.Body.Question,
		Answer:      answerPlaceholder,
		Sources:     answerSources,
		Confidence:  0.92,
		ContextUsed: used,
	}}, nil
}
