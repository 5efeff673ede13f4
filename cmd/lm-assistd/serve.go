package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/langmartai/lm-assist/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch every known project and keep the session cache, execution store, and task stores warm",
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

			dirs, err := allProjectDirs()
			if err != nil {
				return err
			}
			for _, dir := range dirs {
				if err := d.watchProject(dir, stateDir); err != nil {
					log.Printf("lm-assistd: watch %s: %v", dir, err)
					continue
				}
				if err := d.cache.Warm(dir, cfg.Cache.WarmingConcurrency); err != nil {
					log.Printf("lm-assistd: warm %s: %v", dir, err)
				}
			}

			log.Printf("lm-assistd: watching %d project(s)", len(dirs))
			d.run(cmd.Context())
			return nil
		},
	}

	return cmd
}
