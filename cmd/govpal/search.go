package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"govpal/internal/search"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [flags] query...",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().String("dept", "", "only return documents from this department")
	cmd.Flags().Int("limit", 0, "maximum number of documents")
	cmd.Flags().Bool("json", false, "print the response as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("limit must be positive")
	}
	svc, _, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	dept, _ := cmd.Flags().GetString("dept")
	resp, err := svc.Search(cmd.Context(), search.Query{
		Text:  strings.Join(args, " "),
		Dept:  dept,
		Limit: limit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if resp.Total == 0 {
		fmt.Fprintln(out, "No matching documents.")
		return nil
	}
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s  (score %.3f, %d chunks)\n   %s\n", i+1, r.Title, r.Score, r.Metadata.ChunkCount,
			strings.ReplaceAll(r.Content, "\n", " "))
	}
	return nil
}
