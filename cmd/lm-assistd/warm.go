package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langmartai/lm-assist/internal/config"
)

func newWarmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warm <project-dir>",
		Short: "Eagerly parse every session under a project directory and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				cfgPath = config.DefaultConfigPath()
			}
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}

			stateDir := config.DefaultStateDir()
			d, err := newDaemon(cfg, stateDir)
			if err != nil {
				return err
			}

			projectDir := args[0]
			if err := d.cache.Warm(projectDir, cfg.Cache.WarmingConcurrency); err != nil {
				return err
			}

			sessions, err := d.aggregator.ListSessions(projectDir)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d prompts\t%s\n", s.SessionID, s.Status, s.UserPromptCount, s.LastModified.Format("2006-01-02T15:04:05"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) warmed\n", len(sessions))
			return nil
		},
	}
	return cmd
}
