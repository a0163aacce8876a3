package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"govpal/internal/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cfg, _, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			docs, chunks, _, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("%d documents, %d chunks (%s index at %s)", docs, chunks, cfg.Index.Backend, cfg.Index.Dir)
			m := tui.New(svc, summary, cfg.Search.DefaultLimit)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
