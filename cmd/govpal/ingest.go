package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"govpal/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [flags] file...",
		Short: "Ingest PDF and DOCX files into the index",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	cmd.Flags().String("dept", "", "department applied to every file")
	cmd.Flags().Int("year", 0, "year applied to every file (inferred from text when unset)")
	cmd.Flags().String("tags", "", "comma-separated tags applied to every file")
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, _, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	var opts ingest.Options
	if dept, _ := cmd.Flags().GetString("dept"); dept != "" {
		opts.Dept = &dept
	}
	if cmd.Flags().Changed("year") {
		year, _ := cmd.Flags().GetInt("year")
		opts.Year = &year
	}
	tags, _ := cmd.Flags().GetString("tags")
	opts.Tags = ingest.ParseTags(tags)

	summary, err := svc.IngestPaths(cmd.Context(), args, opts)
	if summary != nil {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(summary); encErr != nil {
				return encErr
			}
		} else {
			printSummary(cmd, summary)
		}
	}
	return err
}

func printSummary(cmd *cobra.Command, s *ingest.Summary) {
	out := cmd.OutOrStdout()
	for _, r := range s.Results {
		switch r.Status {
		case ingest.StatusSuccess:
			fmt.Fprintf(out, "ok       %s  id=%s chunks=%d\n", r.Filename, *r.DocumentID, r.ChunksCreated)
		default:
			fmt.Fprintf(out, "%-8s %s  %s\n", r.Status, r.Filename, r.Message)
		}
	}
	fmt.Fprintln(out, s.Message)
}
