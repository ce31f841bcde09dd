package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glowpress/glowpress/config"
	"github.com/glowpress/glowpress/internal/events"
	srv "github.com/glowpress/glowpress/internal/server"
)

func runCMD() *cobra.Command {
	var cfgPath string
	var run = &cobra.Command{
		Use:   "run [topic]",
		Short: "Generate a content package for a topic and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			deps, err := srv.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			emit := events.Emitter(func(ev events.Event) {
				switch ev.Kind {
				case events.KindLog:
					fmt.Printf("[%s] %s\n", ev.Stage, ev.Message)
				case events.KindProgress:
					fmt.Printf("progress: %d%%\n", ev.Progress)
				}
			})

			record, err := deps.Orch.Run(context.Background(), topic, emit)
			if err != nil {
				return err
			}

			fmt.Println("\n===== RESEARCH BRIEF =====")
			fmt.Println(record.Research)
			fmt.Println("\n===== BLOG POST =====")
			fmt.Println(record.Blog)
			if record.Image.Path != "" {
				fmt.Printf("\n===== IMAGE =====\n%s (%s)\n", record.Image.Path, record.Image.Caption)
			}
			fmt.Println("\n===== LINKEDIN POST =====")
			fmt.Println(record.LinkedIn)
			return nil
		},
	}
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return run
}
