package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cfg, _, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			docs, chunks, dim, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend:   %s\nindex:     %s\ndocuments: %d\nchunks:    %d\ndimension: %d\n",
				cfg.Index.Backend, cfg.Index.Dir, docs, chunks, dim)
			return nil
		},
	}
}
