package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govpal/internal/ingest"
	"govpal/internal/search"
)

// keywordEmbeddingServer is an OpenAI-compatible /embeddings endpoint that
// embeds text on two axes: "housing" and "transit".
func keywordEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			in = strings.ToLower(in)
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(strings.Count(in, "housing")) + 0.01, float64(strings.Count(in, "transit")) + 0.01},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list", "model": "kw", "data": data,
			"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeDocx(t *testing.T, path, text string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fmt.Fprintf(fw, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, text)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeConfig(t *testing.T, backend, embedURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "govpal.yaml")
	body := fmt.Sprintf(`index:
  dir: %s
  backend: %s
storage:
  dir: %s
embedder:
  base_url: %s
  model: kw
  max_retries: 0
log:
  level: error
`, filepath.Join(dir, "index"), backend, filepath.Join(dir, "storage"), embedURL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "ingest", "search", "tui", "stats"} {
		assert.Contains(t, out, sub)
	}
}

func TestIngestAndSearch_EndToEnd(t *testing.T) {
	for _, backend := range []string{"disk", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			emb := keywordEmbeddingServer(t)
			cfgPath, dir := writeConfig(t, backend, emb.URL+"/v1")

			docs := filepath.Join(dir, "docs")
			require.NoError(t, os.MkdirAll(docs, 0o755))
			writeDocx(t, filepath.Join(docs, "housing.docx"), "Affordable housing plan adopted in 2022. Housing targets rise.")
			writeDocx(t, filepath.Join(docs, "transit.docx"), "Transit fares frozen for 2020.")
			require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.txt"), []byte("skip me"), 0o644))

			out, err := execute(t, "ingest", "-c", cfgPath, "--dept", "planning", "--json", filepath.Join(docs, "*"))
			require.NoError(t, err)
			var summary ingest.Summary
			require.NoError(t, json.Unmarshal([]byte(out), &summary))
			assert.Equal(t, 3, summary.FilesProcessed)
			assert.Equal(t, 2, summary.FilesSuccessful)
			assert.Equal(t, "2 of 3 files processed successfully", summary.Message)

			out, err = execute(t, "search", "-c", cfgPath, "--json", "housing")
			require.NoError(t, err)
			var resp search.Response
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.Equal(t, 1, resp.Total)
			assert.Equal(t, "housing.docx", resp.Results[0].Title)
			assert.Equal(t, 2022, *resp.Results[0].Metadata.Year)
			assert.Equal(t, map[string]int{"planning": 2}, resp.Aggregates.ByDept)

			out, err = execute(t, "search", "-c", cfgPath, "--dept", "finance", "transit")
			require.NoError(t, err)
			assert.Contains(t, out, "No matching documents.")

			out, err = execute(t, "stats", "-c", cfgPath)
			require.NoError(t, err)
			assert.Contains(t, out, "documents: 2")
		})
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cfgPath, _ := writeConfig(t, "disk", "http://localhost:1/v1")
	root := NewRootCmd()
	require.NoError(t, root.ParseFlags([]string{"-c", cfgPath, "--backend", "memory", "--log-level", "debug"}))

	cfg, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.NoError(t, root.ParseFlags([]string{"--backend", "redis"}))
	_, err = loadConfig(root)
	assert.Error(t, err)
}
